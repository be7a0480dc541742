package services

import (
	"errors"
	"fmt"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

// BridgeError is a domain rule violation. The code is the stable value that
// travels in the API response; the message is for logs and the error chain.
type BridgeError struct {
	Code    data.BridgeErrorCode
	Message string
}

func (e *BridgeError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewBridgeError(code data.BridgeErrorCode, message string) *BridgeError {
	return &BridgeError{Code: code, Message: message}
}

// AsBridgeError unwraps err looking for a BridgeError.
func AsBridgeError(err error) (*BridgeError, bool) {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr, true
	}
	return nil, false
}
