package entity

import (
	"fmt"
	"time"
)

// Slot is one bookable time unit of the generated catalog
type Slot struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
}

// Descriptor is the display string stored on the appointment
func (s Slot) Descriptor() string {
	return fmt.Sprintf("%s (%s)", s.Title, s.Description)
}
