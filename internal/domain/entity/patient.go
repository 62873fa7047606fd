package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingStage is the conversational state derived from persisted records.
// There is no session table; the stage is always recomputed.
type BookingStage string

const (
	BookingStageNone         BookingStage = "none"
	BookingStageAwaitingName BookingStage = "awaiting_name"
	BookingStageConfirmed    BookingStage = "confirmed"
)

// Patient is created lazily on the first slot selection from an address
type Patient struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        *string   `gorm:"type:varchar(255)" json:"name,omitempty"`
	PhoneNumber string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone_number"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasName reports whether the patient's name is known.
// An absent name, or one that is empty after trimming, counts as unknown.
func (p *Patient) HasName() bool {
	return p != nil && p.Name != nil && strings.TrimSpace(*p.Name) != ""
}

// DisplayName returns the trimmed name or an empty string
func (p *Patient) DisplayName() string {
	if !p.HasName() {
		return ""
	}
	return strings.TrimSpace(*p.Name)
}

// SetName stores the trimmed name
func (p *Patient) SetName(name string) {
	trimmed := strings.TrimSpace(name)
	p.Name = &trimmed
}

// ResolveBookingStage derives the stage of a patient's latest booking
func ResolveBookingStage(p *Patient, latest *Appointment) BookingStage {
	if p == nil || latest == nil {
		return BookingStageNone
	}
	if !p.HasName() {
		return BookingStageAwaitingName
	}
	return BookingStageConfirmed
}
