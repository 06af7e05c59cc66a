package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joshsymonds/gmailsend/internal/config"
	"github.com/joshsymonds/gmailsend/internal/runtime"
	"github.com/joshsymonds/gmailsend/pkg/credential"
	"github.com/joshsymonds/gmailsend/pkg/message"
	"github.com/joshsymonds/gmailsend/pkg/sender"
)

type sendConfig struct {
	to          []string
	cc          []string
	bcc         []string
	subject     string
	body        string
	from        string
	html        bool
	credentials string
	token       string
	identity    string
	configFile  string
}

func main() {
	cfg, err := parseSendFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stdout, "✗ Error: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stdout, "✗ Error: %v\n", err)
		os.Exit(1)
	}
}

func parseSendFlags(args []string, errOut io.Writer) (sendConfig, error) {
	fs := flag.NewFlagSet("gmailsend", flag.ContinueOnError)
	fs.SetOutput(errOut)
	to := fs.String("to", "", "comma separated recipient addresses (required)")
	subject := fs.String("subject", "", "email subject (required)")
	body := fs.String("body", "", "email body (required)")
	from := fs.String("from", "", "sender address (overrides the resolved identity)")
	cc := fs.String("cc", "", "comma separated CC addresses")
	bcc := fs.String("bcc", "", "comma separated BCC addresses")
	html := fs.Bool("html", false, "send the body as HTML")
	credentials := fs.String("credentials", "", "path to the app credentials file")
	token := fs.String("token", "", "path to the token file")
	identity := fs.String("identity", "", "sending identity when it cannot be derived from the token")
	configFile := fs.String("config", "", "optional YAML config file")
	if err := fs.Parse(args); err != nil {
		return sendConfig{}, err
	}

	cfg := sendConfig{
		to:          config.SplitList(*to),
		cc:          config.SplitList(*cc),
		bcc:         config.SplitList(*bcc),
		subject:     *subject,
		body:        *body,
		from:        *from,
		html:        *html,
		credentials: *credentials,
		token:       *token,
		identity:    *identity,
		configFile:  *configFile,
	}
	var missing []string
	if len(cfg.to) == 0 {
		missing = append(missing, "-to")
	}
	if cfg.subject == "" {
		missing = append(missing, "-subject")
	}
	if cfg.body == "" {
		missing = append(missing, "-body")
	}
	if len(missing) > 0 {
		return sendConfig{}, fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func loadConfig(cfg sendConfig) (*config.Config, error) {
	var (
		base *config.Config
		err  error
	)
	if cfg.configFile != "" {
		base, err = config.LoadFromFile(cfg.configFile)
	} else {
		base, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if cfg.token != "" {
		base.TokenFile = cfg.token
	}
	if cfg.credentials != "" {
		base.CredentialsFile = cfg.credentials
	}
	if cfg.identity != "" {
		base.Identity = cfg.identity
	}
	// An explicit From is a usable identity when nothing else names one.
	if base.Identity == "" && cfg.from != "" {
		if addr, err := message.ParseAddress(cfg.from); err == nil {
			base.Identity = addr.Address
		}
	}
	return base, nil
}

// explainIdentity points at the settings that fix an unresolvable identity.
func explainIdentity(err error) error {
	if errors.Is(err, credential.ErrNoIdentity) {
		return fmt.Errorf("%w (set SENDING_IDENTITY or pass -identity)", err)
	}
	return err
}

func buildMessage(cfg sendConfig) (*message.Message, error) {
	opts := []message.Option{message.WithCC(cfg.cc...), message.WithBCC(cfg.bcc...)}
	if cfg.html {
		opts = append(opts, message.HTML())
	}
	return message.New(cfg.to, cfg.subject, cfg.body, opts...)
}

func run(cfg sendConfig, out io.Writer) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	settings, err := loadConfig(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := runtime.NewLogger(settings.LogLevel)

	// Validate before touching credentials so bad input never reaches the network.
	msg, err := buildMessage(cfg)
	if err != nil {
		return err
	}

	s, err := sender.New(ctx, sender.Config{
		TokenPath:         settings.TokenFile,
		CredentialsPath:   settings.CredentialsFile,
		Scopes:            settings.Scopes,
		Identity:          settings.Identity,
		RequestsPerSecond: settings.RequestsPerSec,
	}, sender.WithLogger(logger))
	if err != nil {
		return explainIdentity(err)
	}
	defer s.Close()

	if _, err := s.Send(ctx, msg, cfg.from); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "✓ Email sent successfully to %s\n", strings.Join(cfg.to, ", "))
	return err
}
