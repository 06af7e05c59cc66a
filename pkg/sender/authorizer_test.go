package sender

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

type stubAuthorizer struct{ calls int }

func (s *stubAuthorizer) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	_ = ctx
	_ = conf
	s.calls++
	return &oauth2.Token{AccessToken: "fresh", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}, nil
}
