// internal/gmail/types.go
package gmail

type MessageID string
type ThreadID string

// SentMessage is what the provider reports back for an accepted message.
type SentMessage struct {
	ID       MessageID
	ThreadID ThreadID
	Labels   []string
}

type Profile struct {
	EmailAddress  string
	MessagesTotal int64
}

// SendScope is the OAuth scope that allows sending but nothing else.
const SendScope = "https://www.googleapis.com/auth/gmail.send"
