package server

import "strings"

var localhostOrigins = []string{
	"http://localhost",
	"https://localhost",
	"http://127.0.0.1",
	"https://127.0.0.1",
	"http://[::1]",
	"https://[::1]",
}

// OriginGuard validates Origin headers to prevent DNS rebinding attacks.
// Localhost origins are always allowed, with or without a port; additional
// origins are matched exactly.
type OriginGuard struct {
	allowed []string
}

// NewOriginGuard builds a guard that allows localhost plus the given extra
// origins.
func NewOriginGuard(extra []string) *OriginGuard {
	return &OriginGuard{allowed: extra}
}

// Allow reports whether a request carrying the given Origin header may
// proceed. An absent Origin header is allowed: non-browser clients (CLIs,
// SDKs) do not send one, and the header's only job is flagging cross-site
// browser requests.
func (g *OriginGuard) Allow(origin string) bool {
	if origin == "" {
		return true
	}
	if isLocalhostOrigin(origin) {
		return true
	}
	for _, allowed := range g.allowed {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isLocalhostOrigin checks the origin against the localhost representations,
// with or without an explicit port.
func isLocalhostOrigin(origin string) bool {
	for _, pattern := range localhostOrigins {
		if origin == pattern {
			return true
		}
		if strings.HasPrefix(origin, pattern+":") {
			return true
		}
	}
	return false
}
