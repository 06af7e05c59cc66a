// Package credential owns the on-disk OAuth2 token for a single Gmail
// account: loading it, deciding whether it is usable, refreshing it, and
// running the interactive authorization flow when nothing else works.
package credential

import (
	"slices"
	"time"

	"golang.org/x/oauth2"
)

// expiryDelta treats tokens this close to expiry as already expired so a
// send does not start with a token that dies mid-request.
const expiryDelta = time.Minute

// Credential is a token set authorizing actions on behalf of one account.
// Values returned by Store are copies; mutating them has no effect on the store.
type Credential struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	Scopes       []string
	ClientID     string
	ClientSecret string
	TokenURI     string
	Account      string
}

// Expired reports whether the access token is past (or within expiryDelta of)
// its expiry. A zero expiry never expires.
func (c Credential) Expired(now time.Time) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Add(expiryDelta).Before(c.Expiry)
}

// HasScopes reports whether every required scope was granted.
func (c Credential) HasScopes(required []string) bool {
	for _, s := range required {
		if !slices.Contains(c.Scopes, s) {
			return false
		}
	}
	return true
}

// Valid means the token is present, unexpired and carries the required scopes.
func (c Credential) Valid(required []string, now time.Time) bool {
	return c.AccessToken != "" && !c.Expired(now) && c.HasScopes(required)
}

// Token converts the credential to an oauth2 token.
func (c Credential) Token() *oauth2.Token {
	tt := c.TokenType
	if tt == "" {
		tt = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    tt,
		Expiry:       c.Expiry,
	}
}

func (c Credential) clone() Credential {
	c.Scopes = slices.Clone(c.Scopes)
	return c
}

// withToken returns c updated from a freshly issued token. Fields the token
// endpoint omits (refresh token, scope) keep their previous values.
func (c Credential) withToken(tok *oauth2.Token) Credential {
	out := c.clone()
	out.AccessToken = tok.AccessToken
	out.TokenType = tok.TokenType
	out.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		out.RefreshToken = tok.RefreshToken
	}
	if granted := grantedScopes(tok); len(granted) > 0 {
		out.Scopes = granted
	}
	return out
}

func grantedScopes(tok *oauth2.Token) []string {
	raw, _ := tok.Extra("scope").(string)
	return splitScopes(raw)
}
