package auth

import "fmt"

// Scope is the declared purpose of a token. A token issued for one scope is
// never accepted for another.
type Scope string

const (
	ScopeAccess        Scope = "access"
	ScopeRefresh       Scope = "refresh"
	ScopeEmailVerify   Scope = "email-verify"
	ScopePasswordReset Scope = "password-reset"
)

// ParseScope converts a claim value back into a Scope, rejecting anything
// outside the known set.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeAccess, ScopeRefresh, ScopeEmailVerify, ScopePasswordReset:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown token scope %q", s)
}

func (s Scope) String() string {
	return string(s)
}
