// Package sender submits validated messages to Gmail on behalf of the
// account held by a credential.Store.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"google.golang.org/api/option"

	"github.com/joshsymonds/gmailsend/internal/gmail"
	"github.com/joshsymonds/gmailsend/internal/rate"
	"github.com/joshsymonds/gmailsend/internal/runtime"
	"github.com/joshsymonds/gmailsend/pkg/credential"
	"github.com/joshsymonds/gmailsend/pkg/message"
)

const (
	DefaultTokenPath       = "token.json"
	DefaultCredentialsPath = "credentials.json"
)

// Config wires the credential store and the sending identity.
type Config struct {
	TokenPath       string
	CredentialsPath string
	// Scopes defaults to gmail.send only.
	Scopes []string
	// Identity overrides the sending identity derived from the credential.
	Identity string
	// RequestsPerSecond gates provider calls; zero disables gating.
	RequestsPerSecond int
}

// Result is the outcome of a successful send.
type Result struct {
	Success  bool
	ID       string
	ThreadID string
}

// Sender is safe for sequential use; it holds no per-message state.
type Sender struct {
	client   gmail.Client
	limiter  rate.Limiter
	bucket   *rate.TokenBucket
	identity string
	logger   *slog.Logger
}

type options struct {
	logger     *slog.Logger
	client     gmail.Client
	authorizer credential.Authorizer
	httpClient *http.Client
	apiOpts    []option.ClientOption
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithClient replaces the Gmail API client.
func WithClient(c gmail.Client) Option { return func(o *options) { o.client = c } }

// WithAuthorizer replaces the interactive loopback flow.
func WithAuthorizer(a credential.Authorizer) Option { return func(o *options) { o.authorizer = a } }

// WithHTTPClient is used for OAuth token exchanges.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithAPIOptions are appended when building the Gmail service.
func WithAPIOptions(opts ...option.ClientOption) Option {
	return func(o *options) { o.apiOpts = append(o.apiOpts, opts...) }
}

// New acquires a credential (possibly running the interactive flow) and
// resolves the sending identity up front, so configuration problems surface
// here rather than on the first Send.
func New(ctx context.Context, cfg Config, opts ...Option) (*Sender, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = runtime.DefaultLogger()
	}
	cfg = withDefaults(cfg)

	store := credential.NewStore(credential.Config{
		TokenPath:       cfg.TokenPath,
		CredentialsPath: cfg.CredentialsPath,
		Scopes:          cfg.Scopes,
	}, o.logger)
	if o.authorizer != nil {
		store.Authorizer = o.authorizer
	}
	store.HTTPClient = o.httpClient

	cred, err := store.LoadOrAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	client := o.client
	if client == nil {
		// Lazy refreshes outlive the construction context.
		ts := store.TokenSource(context.WithoutCancel(ctx), cred)
		client, err = runtime.NewGmailClient(ctx, ts, o.apiOpts...)
		if err != nil {
			return nil, err
		}
	}

	lookup := func(ctx context.Context) (string, error) {
		p, err := client.Profile(ctx)
		if err != nil {
			return "", err
		}
		return p.EmailAddress, nil
	}
	identity, err := credential.ResolveIdentity(ctx, cred, cfg.Identity, lookup)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Identity) == "" && strings.TrimSpace(cred.Account) == "" {
		// Looked up from the provider; keep it so later runs skip the call.
		if _, err := store.RecordAccount(ctx, cred, identity); err != nil {
			o.logger.WarnContext(ctx, "could not record sending identity", slog.Any("error", err))
		}
	}

	s := &Sender{
		client:   client,
		limiter:  rate.Unlimited{},
		identity: identity,
		logger:   o.logger,
	}
	if cfg.RequestsPerSecond > 0 {
		s.bucket = rate.NewTokenBucket(cfg.RequestsPerSecond)
		s.limiter = s.bucket
	}
	o.logger.DebugContext(ctx, "sender ready", slog.String("identity", identity))
	return s, nil
}

func withDefaults(cfg Config) Config {
	if strings.TrimSpace(cfg.TokenPath) == "" {
		cfg.TokenPath = DefaultTokenPath
	}
	if strings.TrimSpace(cfg.CredentialsPath) == "" {
		cfg.CredentialsPath = DefaultCredentialsPath
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{gmail.SendScope}
	} else {
		cfg.Scopes = slices.Clone(cfg.Scopes)
	}
	return cfg
}

// Identity is the address used for From when Send gets no override.
func (s *Sender) Identity() string { return s.identity }

// Send submits msg. from, when non-empty, replaces the resolved identity in
// the From header. A nil error always comes with Result.Success set.
func (s *Sender) Send(ctx context.Context, msg *message.Message, from string) (Result, error) {
	if msg == nil || len(msg.Recipients()) == 0 {
		return Result{}, &message.ValidationError{Field: "to", Err: message.ErrNoRecipients}
	}
	if strings.TrimSpace(from) == "" {
		from = s.identity
	}

	raw, err := msg.Raw(from)
	if err != nil {
		var verr *message.ValidationError
		if errors.As(err, &verr) {
			return Result{}, err
		}
		return Result{}, &SendError{Err: err}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return Result{}, &SendError{Err: err}
	}
	sent, err := s.client.Send(ctx, raw)
	if err != nil {
		return Result{}, &SendError{Err: err}
	}
	if sent.ID == "" {
		return Result{}, &SendError{Err: ErrNoMessageID}
	}

	s.logger.InfoContext(ctx, "sent message",
		slog.String("id", string(sent.ID)),
		slog.Int("recipients", len(msg.Recipients())),
	)
	return Result{Success: true, ID: string(sent.ID), ThreadID: string(sent.ThreadID)}, nil
}

// Close stops the rate limiter, if any.
func (s *Sender) Close() {
	if s.bucket != nil {
		s.bucket.Stop()
		s.bucket = nil
	}
}
