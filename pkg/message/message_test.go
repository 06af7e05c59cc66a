package message

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/require"
)

func TestNewBasic(t *testing.T) {
	msg, err := New([]string{"test@example.com"}, "Test Subject", "Test body")
	require.NoError(t, err)
	require.Equal(t, []string{"test@example.com"}, msg.To())
	require.Equal(t, "Test Subject", msg.Subject())
	require.Equal(t, "Test body", msg.Body())
	require.Equal(t, FormatPlain, msg.Format())
	require.Nil(t, msg.CC())
	require.Nil(t, msg.BCC())
}

func TestNewWithOptions(t *testing.T) {
	msg, err := New(
		[]string{"test@example.com"},
		"Test Subject",
		"<h1>Test HTML</h1>",
		HTML(),
		WithCC("cc@example.com"),
		WithBCC("bcc@example.com"),
	)
	require.NoError(t, err)
	require.Equal(t, FormatHTML, msg.Format())
	require.Equal(t, []string{"cc@example.com"}, msg.CC())
	require.Equal(t, []string{"bcc@example.com"}, msg.BCC())
	require.Equal(t, []string{"test@example.com", "cc@example.com", "bcc@example.com"}, msg.Recipients())
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		to      []string
		opts    []Option
		field   string
		wantErr error
	}{
		{name: "no-recipients", to: nil, field: "to", wantErr: ErrNoRecipients},
		{name: "empty-slice", to: []string{}, field: "to", wantErr: ErrNoRecipients},
		{name: "invalid-to", to: []string{"invalid-email"}, field: "to", wantErr: ErrInvalidAddress},
		{name: "blank-to", to: []string{"  "}, field: "to", wantErr: ErrInvalidAddress},
		{name: "no-dot-domain", to: []string{"user@localhost"}, field: "to", wantErr: ErrInvalidAddress},
		{name: "empty-local", to: []string{"@example.com"}, field: "to", wantErr: ErrInvalidAddress},
		{name: "underscore-domain", to: []string{"a@exa_mple.com"}, field: "to", wantErr: ErrInvalidAddress},
		{name: "numeric-tld", to: []string{"a@1.2"}, field: "to", wantErr: ErrInvalidAddress},
		{name: "ip-like", to: []string{"a@10.0.0.1"}, field: "to", wantErr: ErrInvalidAddress},
		{name: "hyphen-label", to: []string{"a@-example.com"}, field: "to", wantErr: ErrInvalidAddress},
		{name: "long-label", to: []string{"a@" + strings.Repeat("x", 64) + ".com"}, field: "to", wantErr: ErrInvalidAddress},
		{name: "second-bad", to: []string{"ok@example.com", "bad@"}, field: "to", wantErr: ErrInvalidAddress},
		{
			name:    "invalid-cc",
			to:      []string{"ok@example.com"},
			opts:    []Option{WithCC("nope")},
			field:   "cc",
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "invalid-bcc",
			to:      []string{"ok@example.com"},
			opts:    []Option{WithBCC("a@b..com")},
			field:   "bcc",
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "bad-format",
			to:      []string{"ok@example.com"},
			opts:    []Option{WithFormat(Format(7))},
			field:   "format",
			wantErr: ErrUnknownFormat,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			msg, err := New(tc.to, "s", "b", tc.opts...)
			require.Nil(t, msg)
			require.ErrorIs(t, err, tc.wantErr)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestNewAcceptsDisplayName(t *testing.T) {
	msg, err := New([]string{"Jane Doe <jane@example.com>"}, "s", "b")
	require.NoError(t, err)
	require.Equal(t, []string{"jane@example.com"}, msg.Recipients())
	require.Contains(t, msg.To()[0], "Jane Doe")
}

func TestNewAcceptsDomainForms(t *testing.T) {
	for _, addr := range []string{
		"a@" + strings.Repeat("x", 63) + ".com",
		"ops@mail-1.example.co.uk",
		"a@bücher.de",
		"a@1example.com",
	} {
		_, err := New([]string{addr}, "s", "b")
		require.NoError(t, err, addr)
	}
}

func TestNewCopiesInput(t *testing.T) {
	to := []string{"a@example.com"}
	msg, err := New(to, "s", "b")
	require.NoError(t, err)
	to[0] = "changed@example.com"
	got := msg.To()
	got[0] = "mutated@example.com"
	require.Equal(t, []string{"a@example.com"}, msg.To())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatPlain, "plain": FormatPlain, "HTML": FormatHTML, " html ": FormatHTML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseFormat("markdown")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestMIMEHeadersAndBody(t *testing.T) {
	msg, err := New(
		[]string{"one@example.com", "two@example.com"},
		"Quarterly report",
		"<p>héllo</p>",
		HTML(),
		WithCC("cc@example.com"),
		WithBCC("hidden@example.com"),
	)
	require.NoError(t, err)

	raw, err := msg.MIME("sender@example.com")
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer mr.Close()

	requireAddresses(t, mr.Header, "From", "sender@example.com")
	requireAddresses(t, mr.Header, "To", "one@example.com", "two@example.com")
	requireAddresses(t, mr.Header, "Cc", "cc@example.com")
	requireAddresses(t, mr.Header, "Bcc", "hidden@example.com")
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	require.Equal(t, "Quarterly report", subject)
	mediaType, _, err := mr.Header.ContentType()
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)
	id, err := mr.Header.MessageID()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	part, err := mr.NextPart()
	require.NoError(t, err)
	ih, ok := part.Header.(*mail.InlineHeader)
	require.True(t, ok, "expected inline body part")
	partType, params, err := ih.ContentType()
	require.NoError(t, err)
	require.Equal(t, "text/html", partType)
	require.Equal(t, "utf-8", params["charset"])
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	require.Equal(t, "<p>héllo</p>", string(body))

	_, err = mr.NextPart()
	require.ErrorIs(t, err, io.EOF)
}

func TestMIMEOmitsEmptyCopyHeaders(t *testing.T) {
	msg, err := New([]string{"one@example.com"}, "s", "plain body")
	require.NoError(t, err)
	raw, err := msg.MIME("sender@example.com")
	require.NoError(t, err)
	head := string(raw[:bytes.Index(raw, []byte("\r\n\r\n"))])
	require.NotContains(t, strings.ToLower(head), "\ncc:")
	require.NotContains(t, strings.ToLower(head), "\nbcc:")
	require.Contains(t, string(raw), "text/plain")
}

func TestMIMERejectsBadFrom(t *testing.T) {
	msg, err := New([]string{"one@example.com"}, "s", "b")
	require.NoError(t, err)
	_, err = msg.MIME("not an address")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "from", verr.Field)
}

func TestRawIsBase64URL(t *testing.T) {
	msg, err := New([]string{"one@example.com"}, "Test", "Test body")
	require.NoError(t, err)
	raw, err := msg.Raw("sender@example.com")
	require.NoError(t, err)
	require.NotContains(t, raw, "+")
	require.NotContains(t, raw, "/")

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	require.Contains(t, string(decoded), "Subject: Test")
	require.Contains(t, string(decoded), "Test body")
}

func requireAddresses(t *testing.T, h mail.Header, key string, want ...string) {
	t.Helper()
	list, err := h.AddressList(key)
	require.NoError(t, err)
	got := make([]string, len(list))
	for i, a := range list {
		got[i] = a.Address
	}
	require.Equal(t, want, got, key)
}
