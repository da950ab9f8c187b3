package common

import (
	"github.com/google/uuid"
)

// NewVenueID generates a unique venue ID with the "ven_" prefix
// Format: ven_<uuid>
func NewVenueID() string {
	return "ven_" + uuid.New().String()
}

// NewSessionID generates a unique chat session ID with the "ses_" prefix
func NewSessionID() string {
	return "ses_" + uuid.New().String()
}

// NewMessageID generates a unique transcript message ID with the "msg_" prefix
func NewMessageID() string {
	return "msg_" + uuid.New().String()
}
