package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated account that owns timers and devices.
type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}
