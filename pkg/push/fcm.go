package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMGateway delivers through Firebase Cloud Messaging.
type FCMGateway struct {
	client *messaging.Client
}

func NewFCMGateway(ctx context.Context, credentialsFile string) (*FCMGateway, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init fcm client: %w", err)
	}

	return &FCMGateway{client: client}, nil
}

func (g *FCMGateway) Send(ctx context.Context, token string, msg *Message) error {
	_, err := g.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err == nil {
		return nil
	}
	if messaging.IsRegistrationTokenNotRegistered(err) {
		return fmt.Errorf("%w: %v", ErrTokenNotRegistered, err)
	}
	return err
}
