package credential

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/joshsymonds/gmailsend/internal/runtime"
)

// Authorizer runs the user-mediated consent and returns a fresh token.
type Authorizer interface {
	Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)
}

// LocalServer is the installed-app flow: it listens on a loopback port,
// hands the consent URL to Prompt, and exchanges the code delivered to the
// redirect. The listener never outlives a single Authorize call.
type LocalServer struct {
	// Host defaults to 127.0.0.1. The port is always chosen by the kernel.
	Host string
	// Prompt presents the consent URL. Defaults to printing it on Out.
	Prompt func(authURL string) error
	// Out receives the default prompt; defaults to stderr.
	Out        io.Writer
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type callbackResult struct {
	code string
	err  error
}

func (a *LocalServer) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	host := a.Host
	if host == "" {
		host = "127.0.0.1"
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback: %w", err)
	}
	defer ln.Close()

	c := *conf
	c.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := c.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var code string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve oauth callback: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer srv.Close()
		a.logger().InfoContext(gctx, "waiting for authorization", slog.String("redirect", c.RedirectURL))
		if err := a.prompt(authURL); err != nil {
			return fmt.Errorf("present authorization url: %w", err)
		}
		select {
		case res := <-results:
			if res.err != nil {
				return res.err
			}
			code = res.code
			return nil
		case <-gctx.Done():
			return fmt.Errorf("authorization canceled: %w", gctx.Err())
		}
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if a.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.HTTPClient)
	}
	tok, err := c.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func (a *LocalServer) prompt(authURL string) error {
	if a.Prompt != nil {
		return a.Prompt(authURL)
	}
	out := a.Out
	if out == nil {
		out = os.Stderr
	}
	_, err := fmt.Fprintf(out, "Please visit this URL to authorize this application:\n%s\n", authURL)
	return err
}

func (a *LocalServer) logger() *slog.Logger {
	if a.Logger == nil {
		return runtime.DefaultLogger()
	}
	return a.Logger
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("authorization callback missing code")
		default:
			res.code = q.Get("code")
		}
		select {
		case results <- res:
		default:
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, "The authentication flow has completed. You may close this window.\n")
	})
}

var _ Authorizer = (*LocalServer)(nil)
