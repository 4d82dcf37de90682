package models

import (
	"time"

	"github.com/google/uuid"
)

// Project groups tasks and defines who may see each other's timer activity.
type Project struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
