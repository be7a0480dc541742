package alerts

import (
	"context"
	"fmt"
	"strings"
)

// DispatcherInterface is the outbound channel for operator alerts: pipeline
// units that exhaust their attempt budget and statements parked in a terminal
// error state.
type DispatcherInterface interface {
	DispatchAlert(ctx context.Context, title, body string) error
}

// Dispatcher routes alerts to a fixed operator target through the configured
// messenger client.
type Dispatcher struct {
	messengerClient MessengerClient
	toEmail         string
	toPhoneNumber   string
}

var _ DispatcherInterface = (*Dispatcher)(nil)

func NewDispatcher(messengerClient MessengerClient, toEmail, toPhoneNumber string) (*Dispatcher, error) {
	if messengerClient == nil {
		return nil, fmt.Errorf("messenger client is required")
	}

	messengerType := messengerClient.MessengerType()
	if messengerType.IsEmail() && messengerType != MessengerTypeDryRun && strings.TrimSpace(toEmail) == "" {
		return nil, fmt.Errorf("alerts email is required for messenger type %s", messengerType)
	}
	if messengerType.IsSMS() && messengerType != MessengerTypeDryRun && strings.TrimSpace(toPhoneNumber) == "" {
		return nil, fmt.Errorf("alerts phone number is required for messenger type %s", messengerType)
	}

	return &Dispatcher{
		messengerClient: messengerClient,
		toEmail:         strings.TrimSpace(toEmail),
		toPhoneNumber:   strings.TrimSpace(toPhoneNumber),
	}, nil
}

func (d *Dispatcher) DispatchAlert(ctx context.Context, title, body string) error {
	message := Message{
		ToEmail:       d.toEmail,
		ToPhoneNumber: d.toPhoneNumber,
		Title:         title,
		Body:          body,
	}

	if err := d.messengerClient.SendMessage(ctx, message); err != nil {
		return fmt.Errorf("dispatching %q alert through %s: %w", title, d.messengerClient.MessengerType(), err)
	}
	return nil
}
