// Package message builds validated outbound email and serializes it into the
// raw form accepted by the Gmail send endpoint.
package message

import (
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"
)

// Format is the media type of the message body.
type Format int

const (
	FormatPlain Format = iota
	FormatHTML
)

func (f Format) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatHTML:
		return "html"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// MediaType returns the Content-Type used for the body part.
func (f Format) MediaType() string {
	if f == FormatHTML {
		return "text/html"
	}
	return "text/plain"
}

// ParseFormat accepts "plain" or "html", case-insensitively. Empty means plain.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain", "text":
		return FormatPlain, nil
	case "html":
		return FormatHTML, nil
	default:
		return 0, &ValidationError{Field: "format", Value: s, Err: ErrUnknownFormat}
	}
}

// Message is a single outbound email. It is immutable once New returns.
type Message struct {
	to      []*mail.Address
	cc      []*mail.Address
	bcc     []*mail.Address
	subject string
	body    string
	format  Format
}

type options struct {
	cc     []string
	bcc    []string
	format Format
}

type Option func(*options)

func WithCC(addrs ...string) Option {
	return func(o *options) { o.cc = append(o.cc, addrs...) }
}

func WithBCC(addrs ...string) Option {
	return func(o *options) { o.bcc = append(o.bcc, addrs...) }
}

func WithFormat(f Format) Option {
	return func(o *options) { o.format = f }
}

// HTML is shorthand for WithFormat(FormatHTML).
func HTML() Option { return WithFormat(FormatHTML) }

// New validates every address and returns an immutable message. Any
// failure is a *ValidationError.
func New(to []string, subject, body string, opts ...Option) (*Message, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.format != FormatPlain && o.format != FormatHTML {
		return nil, &ValidationError{Field: "format", Value: o.format.String(), Err: ErrUnknownFormat}
	}
	if len(to) == 0 {
		return nil, &ValidationError{Field: "to", Err: ErrNoRecipients}
	}

	toAddrs, err := parseList("to", to)
	if err != nil {
		return nil, err
	}
	ccAddrs, err := parseList("cc", o.cc)
	if err != nil {
		return nil, err
	}
	bccAddrs, err := parseList("bcc", o.bcc)
	if err != nil {
		return nil, err
	}

	return &Message{
		to:      toAddrs,
		cc:      ccAddrs,
		bcc:     bccAddrs,
		subject: subject,
		body:    body,
		format:  o.format,
	}, nil
}

func (m *Message) To() []string    { return formatList(m.to) }
func (m *Message) CC() []string    { return formatList(m.cc) }
func (m *Message) BCC() []string   { return formatList(m.bcc) }
func (m *Message) Subject() string { return m.subject }
func (m *Message) Body() string    { return m.body }
func (m *Message) Format() Format  { return m.format }

// Recipients lists every envelope address (to, cc and bcc) without display names.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.to)+len(m.cc)+len(m.bcc))
	for _, group := range [][]*mail.Address{m.to, m.cc, m.bcc} {
		for _, a := range group {
			out = append(out, a.Address)
		}
	}
	return out
}
