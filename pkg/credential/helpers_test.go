package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"golang.org/x/oauth2"
)

const sendScope = "https://www.googleapis.com/auth/gmail.send"

type fakeAuthorizer struct {
	tok   *oauth2.Token
	err   error
	calls int
	conf  *oauth2.Config
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	_ = ctx
	f.calls++
	f.conf = conf
	if f.err != nil {
		return nil, f.err
	}
	return f.tok, nil
}

// tokenServer answers OAuth token requests with access tokens named
// "<prefix>-<n>" and counts how often it is hit.
type tokenServer struct {
	*httptest.Server
	calls  atomic.Int32
	status int
	forms  chan map[string]string
}

func newTokenServer(t *testing.T, prefix string) *tokenServer {
	t.Helper()
	ts := &tokenServer{status: http.StatusOK, forms: make(chan map[string]string, 8)}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := ts.calls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		select {
		case ts.forms <- form:
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		if ts.status != http.StatusOK {
			w.WriteHeader(ts.status)
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("%s-%d", prefix, n),
			"token_type":   "Bearer",
			"expires_in":   3600,
			"scope":        sendScope,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeAppCredentials(t *testing.T, dir, tokenURL string) string {
	t.Helper()
	path := filepath.Join(dir, "credentials.json")
	writeJSON(t, path, map[string]any{
		"installed": map[string]any{
			"client_id":     "app-client-id",
			"client_secret": "app-client-secret",
			"auth_uri":      "https://accounts.example.com/o/oauth2/auth",
			"token_uri":     tokenURL,
			"redirect_uris": []string{"http://localhost"},
		},
	})
	return path
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
