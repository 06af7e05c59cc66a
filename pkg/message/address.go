package message

import (
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/mail"
)

// ParseAddress validates a single mailbox, optionally with a display name
// ("Jane <jane@example.com>"). The domain must be a dotted name.
func ParseAddress(s string) (*mail.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidAddress
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	at := strings.LastIndex(addr.Address, "@")
	if at <= 0 || !validDomain(addr.Address[at+1:]) {
		return nil, ErrInvalidAddress
	}
	return addr, nil
}

const (
	maxDomainLen = 253
	maxLabelLen  = 63
)

// validDomain accepts dotted host names. ASCII labels are limited to letters,
// digits and hyphens; labels carrying non-ASCII runes are internationalized
// names and only get the hyphen check. The top-level label must not be all
// digits.
func validDomain(domain string) bool {
	if domain == "" || len(domain) > maxDomainLen || strings.HasPrefix(domain, "[") {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if !validLabel(l) {
			return false
		}
	}
	return !allDigits(labels[len(labels)-1])
}

func validLabel(l string) bool {
	if l == "" || strings.HasPrefix(l, "-") || strings.HasSuffix(l, "-") {
		return false
	}
	if !isASCII(l) {
		return utf8.ValidString(l)
	}
	if len(l) > maxLabelLen {
		return false
	}
	for i := 0; i < len(l); i++ {
		c := l[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
			return false
		}
	}
	return true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parseList(field string, in []string) ([]*mail.Address, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]*mail.Address, 0, len(in))
	for _, raw := range in {
		addr, err := ParseAddress(raw)
		if err != nil {
			return nil, &ValidationError{Field: field, Value: raw, Err: err}
		}
		out = append(out, addr)
	}
	return out, nil
}

func formatAddress(a *mail.Address) string {
	if a.Name == "" {
		return a.Address
	}
	return a.String()
}

func formatList(l []*mail.Address) []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, len(l))
	for i, a := range l {
		out[i] = formatAddress(a)
	}
	return out
}
