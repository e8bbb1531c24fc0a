package delivery

import (
	"context"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

type lineMessenger struct {
	api *messaging_api.MessagingApiAPI
}

// NewLine creates a Messenger backed by the LINE Messaging API
func NewLine(channelAccessToken string) (Messenger, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelAccessToken)
	if err != nil {
		return nil, fmt.Errorf("create LINE client: %w", err)
	}
	return &lineMessenger{api: api}, nil
}

// Push sends one text message. ctx is not propagated; the SDK client has its own timeout.
func (l *lineMessenger) Push(ctx context.Context, to, text, retryKey string) error {
	res, _, err := l.api.PushMessageWithHttpInfo(&messaging_api.PushMessageRequest{
		To: to,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	}, retryKey)
	if res != nil && res.StatusCode == http.StatusConflict {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}
