package message

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/emersion/go-message/mail"
)

// MIME serializes the message as a multipart/mixed container holding a
// single body part. from must be a valid address.
func (m *Message) MIME(from string) ([]byte, error) {
	sender, err := ParseAddress(from)
	if err != nil {
		return nil, &ValidationError{Field: "from", Value: from, Err: err}
	}

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{sender})
	h.SetAddressList("To", m.to)
	if len(m.cc) > 0 {
		h.SetAddressList("Cc", m.cc)
	}
	// Gmail drops the Bcc header from the delivered copy.
	if len(m.bcc) > 0 {
		h.SetAddressList("Bcc", m.bcc)
	}
	h.SetSubject(m.subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mime writer: %w", err)
	}

	var ih mail.InlineHeader
	ih.SetContentType(m.format.MediaType(), map[string]string{"charset": "utf-8"})
	ih.Set("Content-Transfer-Encoding", "quoted-printable")
	w, err := mw.CreateSingleInline(ih)
	if err != nil {
		return nil, fmt.Errorf("create body part: %w", err)
	}
	if _, err := w.Write([]byte(m.body)); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close body part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close mime writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Raw returns the base64url (padded) encoding of MIME(from), the form the
// Gmail "raw" field expects.
func (m *Message) Raw(from string) (string, error) {
	b, err := m.MIME(from)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
