package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/mcperrors"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/protocol"
)

// accountSchema is the input schema shared by tools that take only an
// account id.
const accountSchema = `{
	"type": "object",
	"properties": {
		"account_id": {
			"type": "string",
			"description": "REQUIRED. Email address of the account (e.g., user@example.com)"
		}
	},
	"required": ["account_id"]
}`

const folderSchema = `{
	"type": "object",
	"properties": {
		"folder_name": {
			"type": "string",
			"description": "Name of the folder (e.g., INBOX.Archive)"
		},
		"account_id": {
			"type": "string",
			"description": "REQUIRED. Email address of the account (e.g., user@example.com)"
		}
	},
	"required": ["folder_name", "account_id"]
}`

const renameSchema = `{
	"type": "object",
	"properties": {
		"old_name": {
			"type": "string",
			"description": "Current name of the folder (e.g., INBOX.Temp)"
		},
		"new_name": {
			"type": "string",
			"description": "New name for the folder (e.g., INBOX.Projects)"
		},
		"account_id": {
			"type": "string",
			"description": "REQUIRED. Email address of the account (e.g., user@example.com)"
		}
	},
	"required": ["old_name", "new_name", "account_id"]
}`

const accountsSchema = `{
	"type": "object",
	"properties": {}
}`

type accountArgs struct {
	AccountID string `json:"account_id"`
}

type folderArgs struct {
	FolderName string `json:"folder_name"`
	AccountID  string `json:"account_id"`
}

type renameArgs struct {
	OldName   string `json:"old_name"`
	NewName   string `json:"new_name"`
	AccountID string `json:"account_id"`
}

func decodeArgs(args json.RawMessage, into interface{}) error {
	if len(args) == 0 {
		args = []byte(`{}`)
	}
	if err := json.Unmarshal(args, into); err != nil {
		return mcperrors.NewInvalidParams(fmt.Sprintf("malformed arguments: %v", err))
	}
	return nil
}

func marshalResult(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling tool result: %w", err)
	}
	return data, nil
}

// NewMailboxRegistry builds the default registry backed by the given
// Mailbox. The catalog mirrors the folder-management surface of the
// mail engine.
func NewMailboxRegistry(mb Mailbox) *StaticRegistry {
	r := NewStaticRegistry()

	r.Register(protocol.Tool{
		Name:        "list_folders",
		Description: "List all email folders in the account",
		InputSchema: json.RawMessage(accountSchema),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var a accountArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		if a.AccountID == "" {
			return nil, mcperrors.NewInvalidParams("account_id is required")
		}
		folders, err := mb.ListFolders(ctx, a.AccountID)
		if err != nil {
			return nil, err
		}
		return marshalResult(map[string]interface{}{"folders": folders})
	})

	r.Register(protocol.Tool{
		Name:        "list_folders_hierarchical",
		Description: "List folders with hierarchical structure",
		InputSchema: json.RawMessage(accountSchema),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var a accountArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		if a.AccountID == "" {
			return nil, mcperrors.NewInvalidParams("account_id is required")
		}
		folders, err := mb.ListFolders(ctx, a.AccountID)
		if err != nil {
			return nil, err
		}
		return marshalResult(map[string]interface{}{"folders": BuildHierarchy(folders)})
	})

	r.Register(protocol.Tool{
		Name:        "create_folder",
		Description: "Create a new email folder in the account",
		InputSchema: json.RawMessage(folderSchema),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var a folderArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		if a.AccountID == "" || a.FolderName == "" {
			return nil, mcperrors.NewInvalidParams("folder_name and account_id are required")
		}
		if err := mb.CreateFolder(ctx, a.AccountID, a.FolderName); err != nil {
			return nil, err
		}
		return marshalResult(map[string]string{"created": a.FolderName})
	})

	r.Register(protocol.Tool{
		Name:        "delete_folder",
		Description: "Delete an email folder from the account",
		InputSchema: json.RawMessage(folderSchema),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var a folderArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		if a.AccountID == "" || a.FolderName == "" {
			return nil, mcperrors.NewInvalidParams("folder_name and account_id are required")
		}
		if err := mb.DeleteFolder(ctx, a.AccountID, a.FolderName); err != nil {
			return nil, err
		}
		return marshalResult(map[string]string{"deleted": a.FolderName})
	})

	r.Register(protocol.Tool{
		Name:        "rename_folder",
		Description: "Rename an email folder in the account",
		InputSchema: json.RawMessage(renameSchema),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var a renameArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		if a.AccountID == "" || a.OldName == "" || a.NewName == "" {
			return nil, mcperrors.NewInvalidParams("old_name, new_name and account_id are required")
		}
		if err := mb.RenameFolder(ctx, a.AccountID, a.OldName, a.NewName); err != nil {
			return nil, err
		}
		return marshalResult(map[string]string{"renamed": a.OldName, "to": a.NewName})
	})

	r.Register(protocol.Tool{
		Name:        "list_accounts",
		Description: "List all configured email accounts",
		InputSchema: json.RawMessage(accountsSchema),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		accounts, err := mb.ListAccounts(ctx)
		if err != nil {
			return nil, err
		}
		return marshalResult(map[string]interface{}{"accounts": accounts})
	})

	r.Register(protocol.Tool{
		Name:        "count_emails_in_folder",
		Description: "Count messages in a folder",
		InputSchema: json.RawMessage(folderSchema),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var a folderArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		if a.AccountID == "" || a.FolderName == "" {
			return nil, mcperrors.NewInvalidParams("folder_name and account_id are required")
		}
		count, err := mb.CountMessages(ctx, a.AccountID, a.FolderName)
		if err != nil {
			return nil, err
		}
		return marshalResult(map[string]interface{}{"folder": a.FolderName, "count": count})
	})

	r.Register(protocol.Tool{
		Name:        "get_folder_stats",
		Description: "Get message statistics for a folder",
		InputSchema: json.RawMessage(folderSchema),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var a folderArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		if a.AccountID == "" || a.FolderName == "" {
			return nil, mcperrors.NewInvalidParams("folder_name and account_id are required")
		}
		stats, err := mb.FolderStats(ctx, a.AccountID, a.FolderName)
		if err != nil {
			return nil, err
		}
		return marshalResult(stats)
	})

	return r
}
