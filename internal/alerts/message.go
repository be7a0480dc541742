package alerts

import (
	"fmt"
	"strings"

	"github.com/openg2p/g2p-bridge-backend/internal/utils"
)

type Message struct {
	ToPhoneNumber string
	ToEmail       string
	Title         string
	Body          string
}

// ValidateFor validates if the message object is valid for the given messengerType.
func (m *Message) ValidateFor(messengerType MessengerType) error {
	if messengerType.IsSMS() {
		if err := utils.ValidatePhoneNumber(m.ToPhoneNumber); err != nil {
			return fmt.Errorf("invalid message: %w", err)
		}
	}

	if messengerType.IsEmail() {
		if err := utils.ValidateEmail(m.ToEmail); err != nil {
			return fmt.Errorf("invalid message: %w", err)
		}

		if strings.Trim(m.Title, " ") == "" {
			return fmt.Errorf("title is empty")
		}
	}

	if strings.Trim(m.Body, " ") == "" {
		return fmt.Errorf("message is empty")
	}

	return nil
}
