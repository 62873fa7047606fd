package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultDoctorLabel is used in outbound messages when no doctor owns the recipient address
const DefaultDoctorLabel = "Doctor"

// Doctor is seeded externally and read-only in the conversation flow
type Doctor struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNumber string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone_number"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Doctor) TableName() string {
	return "doctors"
}

func (d *Doctor) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DoctorDisplayName returns the doctor's name, or the generic label for a nil doctor
func DoctorDisplayName(d *Doctor) string {
	if d == nil || d.Name == "" {
		return DefaultDoctorLabel
	}
	return d.Name
}

// DoctorIDOf returns a nullable reference to the doctor
func DoctorIDOf(d *Doctor) *uuid.UUID {
	if d == nil {
		return nil
	}
	id := d.ID
	return &id
}
