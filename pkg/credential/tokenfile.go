package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// tokenFile is the authorized-user JSON layout written by Google's client
// libraries, so token.json files created by other tools keep working.
type tokenFile struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	TokenURI     string    `json:"token_uri,omitempty"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Scopes       scopeList `json:"scopes,omitempty"`
	Expiry       string    `json:"expiry,omitempty"`
	Account      string    `json:"account,omitempty"`
}

// scopeList accepts both a JSON array and a space separated string.
type scopeList []string

func (s *scopeList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*s = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(b, &joined); err != nil {
		return fmt.Errorf("scopes: %w", err)
	}
	*s = splitScopes(joined)
	return nil
}

func splitScopes(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseExpiry(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized expiry %q", s)
}

// readToken loads the token artifact. found is false when the file does not exist.
func readToken(path string) (cred Credential, found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, fmt.Errorf("read token file: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return Credential{}, true, fmt.Errorf("decode token file: %w", err)
	}
	expiry, err := parseExpiry(tf.Expiry)
	if err != nil {
		return Credential{}, true, fmt.Errorf("decode token file: %w", err)
	}
	return Credential{
		AccessToken:  tf.Token,
		RefreshToken: tf.RefreshToken,
		TokenType:    tf.TokenType,
		Expiry:       expiry,
		Scopes:       []string(tf.Scopes),
		ClientID:     tf.ClientID,
		ClientSecret: tf.ClientSecret,
		TokenURI:     tf.TokenURI,
		Account:      tf.Account,
	}, true, nil
}

// writeToken replaces the token artifact atomically with mode 0600.
func writeToken(path string, cred Credential) error {
	tf := tokenFile{
		Token:        cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
		TokenURI:     cred.TokenURI,
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Scopes:       scopeList(cred.Scopes),
		Account:      cred.Account,
	}
	if !cred.Expiry.IsZero() {
		tf.Expiry = cred.Expiry.UTC().Format(time.RFC3339Nano)
	}
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
