package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkConfig identifies the Postmark server and the sender identity.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	SenderEmail  string
	ReplyToEmail string
}

// PostmarkSender dispatches through Postmark's transactional API.
type PostmarkSender struct {
	client *postmark.Client
	config PostmarkConfig
}

// NewPostmarkSender validates cfg and returns a ready sender.
func NewPostmarkSender(cfg PostmarkConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	return &PostmarkSender{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
	}, nil
}

// Send implements [Sender].
func (s *PostmarkSender) Send(ctx context.Context, msg Message) (string, error) {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.config.SenderEmail,
		ReplyTo:  s.config.ReplyToEmail,
		To:       msg.To,
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		HTMLBody: msg.BodyHTML,
	})
	if err != nil {
		return "", errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return "", errors.Join(ErrSendFailed,
			fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}
	return resp.MessageID, nil
}
