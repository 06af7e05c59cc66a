// internal/runtime/googleapi.go: adapts *gmail.Service to the gmail.Client interface
package runtime

import (
	"context"
	"errors"

	"google.golang.org/api/gmail/v1"

	gc "github.com/joshsymonds/gmailsend/internal/gmail"
)

type googleClient struct{ svc *gmail.Service }

func NewGoogleAPIClient(svc *gmail.Service) *googleClient { return &googleClient{svc} }

func (g *googleClient) Send(ctx context.Context, raw string) (gc.SentMessage, error) {
	msg, err := g.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return gc.SentMessage{}, err
	}
	if msg == nil {
		return gc.SentMessage{}, errors.New("empty response from gmail")
	}
	return gc.SentMessage{
		ID:       gc.MessageID(msg.Id),
		ThreadID: gc.ThreadID(msg.ThreadId),
		Labels:   msg.LabelIds,
	}, nil
}

func (g *googleClient) Profile(ctx context.Context) (gc.Profile, error) {
	p, err := g.svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return gc.Profile{}, err
	}
	return gc.Profile{EmailAddress: p.EmailAddress, MessagesTotal: p.MessagesTotal}, nil
}

var _ gc.Client = (*googleClient)(nil)
