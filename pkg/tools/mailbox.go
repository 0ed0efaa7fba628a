package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Folder is one mailbox folder. Dotted names express hierarchy
// (INBOX.Archive is a child of INBOX).
type Folder struct {
	Name      string `json:"name"`
	Delimiter string `json:"delimiter"`
}

// FolderNode is a folder with its children resolved, for hierarchical
// listings.
type FolderNode struct {
	Name     string       `json:"name"`
	Children []FolderNode `json:"children,omitempty"`
}

// FolderStats summarizes one folder.
type FolderStats struct {
	Folder string `json:"folder"`
	Total  int    `json:"total"`
	Unseen int    `json:"unseen"`
}

// Mailbox is the capability surface the mailbox tools are built on. The
// real implementation talks IMAP; tests and the default wiring use the
// in-memory one.
type Mailbox interface {
	ListAccounts(ctx context.Context) ([]string, error)
	ListFolders(ctx context.Context, accountID string) ([]Folder, error)
	CreateFolder(ctx context.Context, accountID, name string) error
	DeleteFolder(ctx context.Context, accountID, name string) error
	RenameFolder(ctx context.Context, accountID, oldName, newName string) error
	FolderStats(ctx context.Context, accountID, folder string) (FolderStats, error)
	CountMessages(ctx context.Context, accountID, folder string) (int, error)
}

// InMemoryMailbox is a Mailbox backed by process memory. Safe for
// concurrent use.
type InMemoryMailbox struct {
	mu       sync.RWMutex
	accounts map[string]*memAccount
}

type memAccount struct {
	folders map[string]*memFolder
}

type memFolder struct {
	total  int
	unseen int
}

// NewInMemoryMailbox seeds a mailbox with one demo account carrying the
// standard folder layout.
func NewInMemoryMailbox() *InMemoryMailbox {
	mb := &InMemoryMailbox{accounts: make(map[string]*memAccount)}
	acct := &memAccount{folders: map[string]*memFolder{
		"INBOX":         {total: 42, unseen: 7},
		"INBOX.Sent":    {total: 18, unseen: 0},
		"INBOX.Drafts":  {total: 3, unseen: 0},
		"INBOX.Archive": {total: 120, unseen: 0},
	}}
	mb.accounts["demo@example.com"] = acct
	return mb
}

// AddAccount registers an empty account.
func (m *InMemoryMailbox) AddAccount(accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[accountID]; !ok {
		m.accounts[accountID] = &memAccount{folders: map[string]*memFolder{
			"INBOX": {},
		}}
	}
}

func (m *InMemoryMailbox) account(accountID string) (*memAccount, error) {
	acct, ok := m.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("unknown account: %s", accountID)
	}
	return acct, nil
}

// ListAccounts returns the account ids in sorted order.
func (m *InMemoryMailbox) ListAccounts(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.accounts))
	for id := range m.accounts {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// ListFolders returns the account's folders in sorted order.
func (m *InMemoryMailbox) ListFolders(ctx context.Context, accountID string) ([]Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, err := m.account(accountID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(acct.folders))
	for name := range acct.folders {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Folder, 0, len(names))
	for _, name := range names {
		out = append(out, Folder{Name: name, Delimiter: "."})
	}
	return out, nil
}

// CreateFolder adds a folder. Creating an existing folder is an error.
func (m *InMemoryMailbox) CreateFolder(ctx context.Context, accountID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, err := m.account(accountID)
	if err != nil {
		return err
	}
	if _, exists := acct.folders[name]; exists {
		return fmt.Errorf("folder already exists: %s", name)
	}
	acct.folders[name] = &memFolder{}
	return nil
}

// DeleteFolder removes a folder. INBOX cannot be deleted.
func (m *InMemoryMailbox) DeleteFolder(ctx context.Context, accountID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, err := m.account(accountID)
	if err != nil {
		return err
	}
	if name == "INBOX" {
		return fmt.Errorf("cannot delete INBOX")
	}
	if _, exists := acct.folders[name]; !exists {
		return fmt.Errorf("folder not found: %s", name)
	}
	delete(acct.folders, name)
	return nil
}

// RenameFolder renames a folder, carrying its contents over.
func (m *InMemoryMailbox) RenameFolder(ctx context.Context, accountID, oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, err := m.account(accountID)
	if err != nil {
		return err
	}
	folder, exists := acct.folders[oldName]
	if !exists {
		return fmt.Errorf("folder not found: %s", oldName)
	}
	if _, exists := acct.folders[newName]; exists {
		return fmt.Errorf("folder already exists: %s", newName)
	}
	delete(acct.folders, oldName)
	acct.folders[newName] = folder
	return nil
}

// FolderStats returns message counts for one folder.
func (m *InMemoryMailbox) FolderStats(ctx context.Context, accountID, folder string) (FolderStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, err := m.account(accountID)
	if err != nil {
		return FolderStats{}, err
	}
	f, exists := acct.folders[folder]
	if !exists {
		return FolderStats{}, fmt.Errorf("folder not found: %s", folder)
	}
	return FolderStats{Folder: folder, Total: f.total, Unseen: f.unseen}, nil
}

// CountMessages returns the total message count for one folder.
func (m *InMemoryMailbox) CountMessages(ctx context.Context, accountID, folder string) (int, error) {
	stats, err := m.FolderStats(ctx, accountID, folder)
	if err != nil {
		return 0, err
	}
	return stats.Total, nil
}

// BuildHierarchy arranges dotted folder names into a tree. Orphaned
// children (a child whose parent is missing) attach at the root.
func BuildHierarchy(folders []Folder) []FolderNode {
	exists := make(map[string]bool, len(folders))
	names := make([]string, 0, len(folders))
	for _, f := range folders {
		exists[f.Name] = true
		names = append(names, f.Name)
	}
	sort.Strings(names)

	children := make(map[string][]string)
	var roots []string
	for _, name := range names {
		if idx := strings.LastIndex(name, "."); idx > 0 && exists[name[:idx]] {
			parent := name[:idx]
			children[parent] = append(children[parent], name)
			continue
		}
		roots = append(roots, name)
	}

	var build func(name string) FolderNode
	build = func(name string) FolderNode {
		node := FolderNode{Name: name}
		for _, child := range children[name] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	out := make([]FolderNode, 0, len(roots))
	for _, name := range roots {
		out = append(out, build(name))
	}
	return out
}
