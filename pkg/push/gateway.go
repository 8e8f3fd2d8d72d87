package push

import (
	"context"
	"errors"
)

// Message is one push notification as handed to the delivery gateway.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// ErrTokenNotRegistered marks a delivery failure caused by the target token
// no longer being registered with the gateway. Callers prune such tokens;
// every other failure class is treated as possibly transient.
var ErrTokenNotRegistered = errors.New("push token no longer registered")

func IsTokenNotRegistered(err error) bool {
	return errors.Is(err, ErrTokenNotRegistered)
}

// Gateway delivers one message to one token and reports the outcome
// synchronously. Retry and backoff are the caller's (non-)concern.
type Gateway interface {
	Send(ctx context.Context, token string, msg *Message) error
}
