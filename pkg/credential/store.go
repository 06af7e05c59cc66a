package credential

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/joshsymonds/gmailsend/internal/runtime"
)

// Config locates the token and app-credentials artifacts and names the
// scopes a usable credential must carry.
type Config struct {
	TokenPath       string
	CredentialsPath string
	Scopes          []string
}

// Store produces currently-valid credentials for one account.
type Store struct {
	Config     Config
	Authorizer Authorizer
	HTTPClient *http.Client
	Logger     *slog.Logger
	Clock      func() time.Time

	mu      sync.Mutex
	account string
}

// NewStore constructs a Store with sane defaults: the loopback authorizer,
// the default HTTP client, and the wall clock.
func NewStore(cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = runtime.DefaultLogger()
	}
	cfg.Scopes = slices.Clone(cfg.Scopes)
	return &Store{
		Config:     cfg,
		Authorizer: &LocalServer{Logger: logger},
		Logger:     logger,
		Clock:      time.Now,
	}
}

// LoadOrAcquire returns a credential that is valid at return time. It tries,
// in order: the stored token as-is, a refresh of the stored token, and the
// interactive flow. A failed refresh falls through to the interactive flow.
// Every refresh or new authorization is persisted to Config.TokenPath.
func (s *Store) LoadOrAcquire(ctx context.Context) (Credential, error) {
	now := s.Clock()
	log := s.Logger.With(slog.String("token_path", s.Config.TokenPath))

	cand, found, err := readToken(s.Config.TokenPath)
	switch {
	case err != nil:
		log.WarnContext(ctx, "ignoring unreadable token file", slog.Any("error", err))
		found = false
	case found && cand.Valid(s.Config.Scopes, now):
		log.DebugContext(ctx, "using stored token")
		return cand.clone(), nil
	}

	if found && cand.RefreshToken != "" && cand.HasScopes(s.Config.Scopes) {
		refreshed, err := s.refresh(ctx, cand)
		if err == nil {
			if err := s.persist(refreshed); err != nil {
				return Credential{}, err
			}
			log.InfoContext(ctx, "refreshed stored token")
			return refreshed.clone(), nil
		}
		log.WarnContext(ctx, "token refresh failed; starting authorization", slog.Any("error", err))
	}

	cred, err := s.authorize(ctx)
	if err != nil {
		return Credential{}, err
	}
	if err := s.persist(cred); err != nil {
		return Credential{}, err
	}
	log.InfoContext(ctx, "stored new authorization")
	return cred.clone(), nil
}

// TokenSource returns a source seeded with cred that refreshes on expiry and
// writes every newly issued token back to Config.TokenPath.
func (s *Store) TokenSource(ctx context.Context, cred Credential) oauth2.TokenSource {
	conf := s.oauthConfig(cred)
	return &persistingSource{
		store: s,
		ctx:   ctx,
		cred:  cred.clone(),
		src:   conf.TokenSource(s.withHTTPClient(ctx), cred.Token()),
	}
}

// RecordAccount stores account as the identity of cred in the token
// artifact, so later loads resolve it without asking the provider. Tokens
// refreshed afterwards through TokenSource keep it.
func (s *Store) RecordAccount(ctx context.Context, cred Credential, account string) (Credential, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return cred, &ConfigError{Path: s.Config.TokenPath, Err: ErrNoIdentity}
	}
	s.mu.Lock()
	s.account = account
	s.mu.Unlock()

	cred = cred.clone()
	cred.Account = account
	if err := s.persist(cred); err != nil {
		return cred, err
	}
	s.Logger.InfoContext(ctx, "recorded sending identity",
		slog.String("token_path", s.Config.TokenPath), slog.String("account", account))
	return cred, nil
}

func (s *Store) recordedAccount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

func (s *Store) refresh(ctx context.Context, cand Credential) (Credential, error) {
	if cand.ClientID == "" {
		if conf, err := s.loadAppConfig(); err == nil {
			cand.ClientID = conf.ClientID
			cand.ClientSecret = conf.ClientSecret
			cand.TokenURI = conf.Endpoint.TokenURL
		}
	}
	if cand.ClientID == "" {
		return Credential{}, errors.New("token file has no client id")
	}
	conf := s.oauthConfig(cand)
	tok, err := conf.TokenSource(s.withHTTPClient(ctx), &oauth2.Token{RefreshToken: cand.RefreshToken}).Token()
	if err != nil {
		return Credential{}, fmt.Errorf("refresh token: %w", err)
	}
	refreshed := cand.withToken(tok)
	if !refreshed.Valid(s.Config.Scopes, s.Clock()) {
		return Credential{}, errors.New("refreshed token is not usable")
	}
	return refreshed, nil
}

func (s *Store) authorize(ctx context.Context) (Credential, error) {
	conf, err := s.loadAppConfig()
	if err != nil {
		return Credential{}, err
	}
	if s.Authorizer == nil {
		return Credential{}, errors.New("interactive authorization required but no authorizer configured")
	}
	tok, err := s.Authorizer.Authorize(s.withHTTPClient(ctx), conf)
	if err != nil {
		return Credential{}, fmt.Errorf("authorize: %w", err)
	}
	cred := Credential{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		TokenURI:     conf.Endpoint.TokenURL,
		Scopes:       slices.Clone(s.Config.Scopes),
	}.withToken(tok)
	if !cred.Valid(s.Config.Scopes, s.Clock()) {
		return Credential{}, errors.New("authorize: server returned an unusable token")
	}
	return cred, nil
}

// loadAppConfig reads the installed-application client secrets. It never
// touches the network.
func (s *Store) loadAppConfig() (*oauth2.Config, error) {
	path := s.Config.CredentialsPath
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) || path == "" {
		return nil, &ConfigError{Path: path, Err: ErrCredentialsNotFound}
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("%w: %v", ErrInvalidCredentials, err)}
	}
	conf, err := google.ConfigFromJSON(data, s.Config.Scopes...)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("%w: %v", ErrInvalidCredentials, err)}
	}
	return conf, nil
}

func (s *Store) oauthConfig(cred Credential) *oauth2.Config {
	tokenURL := cred.TokenURI
	if tokenURL == "" {
		tokenURL = google.Endpoint.TokenURL
	}
	return &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Scopes:       cred.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   google.Endpoint.AuthURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (s *Store) persist(cred Credential) error {
	if err := writeToken(s.Config.TokenPath, cred); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

func (s *Store) withHTTPClient(ctx context.Context) context.Context {
	if s.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, s.HTTPClient)
	}
	return ctx
}

type persistingSource struct {
	store *Store
	ctx   context.Context
	src   oauth2.TokenSource

	mu   sync.Mutex
	cred Credential
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.cred.AccessToken {
		return tok, nil
	}
	p.cred = p.cred.withToken(tok)
	if p.cred.Account == "" {
		p.cred.Account = p.store.recordedAccount()
	}
	if err := p.store.persist(p.cred); err != nil {
		p.store.Logger.WarnContext(p.ctx, "could not persist refreshed token", slog.Any("error", err))
	} else {
		p.store.Logger.InfoContext(p.ctx, "refreshed token before send")
	}
	return tok, nil
}
