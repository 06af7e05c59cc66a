package credential

import (
	"context"
	"fmt"
	"strings"
)

// IdentityLookup asks the provider which address the credential acts as.
type IdentityLookup func(ctx context.Context) (string, error)

// ResolveIdentity picks the sending identity: an explicit override first,
// then the account recorded with the token, then lookup (may be nil). It
// never guesses from unrelated token fields.
func ResolveIdentity(ctx context.Context, cred Credential, override string, lookup IdentityLookup) (string, error) {
	if v := strings.TrimSpace(override); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(cred.Account); v != "" {
		return v, nil
	}
	if lookup == nil {
		return "", &ConfigError{Err: ErrNoIdentity}
	}
	addr, err := lookup(ctx)
	if err != nil {
		return "", &ConfigError{Err: fmt.Errorf("%w: %v", ErrNoIdentity, err)}
	}
	if addr = strings.TrimSpace(addr); addr == "" {
		return "", &ConfigError{Err: ErrNoIdentity}
	}
	return addr, nil
}
