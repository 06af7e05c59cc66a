package gmail

import "context"

// Client is the narrow Gmail surface required by gmailsend.
type Client interface {
	// Send submits a base64url-encoded RFC 5322 message for the authorized user.
	Send(ctx context.Context, raw string) (SentMessage, error)
	// Profile returns the mailbox profile of the authorized user.
	Profile(ctx context.Context) (Profile, error)
}
