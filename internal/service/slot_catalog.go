package service

import (
	"fmt"
	"regexp"
	"time"

	"whatsapp-booking-bot/config"
	"whatsapp-booking-bot/internal/domain/entity"
)

const (
	slotTitleLayout       = "02-Jan 03:04 PM"
	slotDescriptionLayout = "Monday, 02 Jan 2006"
	slotDateLayout        = "2006-01-02"
)

// slotIDPattern matches ids produced by GenerateSlots: slot_<ISO date>_<hour>_<index>
var slotIDPattern = regexp.MustCompile(`^slot_\d{4}-\d{2}-\d{2}_\d{2}_\d+$`)

// IsSlotID reports whether id has the shape of a generated slot id
func IsSlotID(id string) bool {
	return slotIDPattern.MatchString(id)
}

// CatalogParams describes one catalog window
type CatalogParams struct {
	StartDate       time.Time
	Days            int
	SlotsPerDay     int
	StartHour       int
	IntervalMinutes int
}

// GenerateSlots builds Days*SlotsPerDay slots starting at StartDate's calendar day,
// in StartDate's location. Identical params always yield identical slots, which is
// what lets a later selection be validated without persisting the offer.
func GenerateSlots(p CatalogParams) []entity.Slot {
	if p.Days <= 0 || p.SlotsPerDay <= 0 {
		return nil
	}
	loc := p.StartDate.Location()
	y, m, d := p.StartDate.Date()

	slots := make([]entity.Slot, 0, p.Days*p.SlotsPerDay)
	for day := 0; day < p.Days; day++ {
		for i := 0; i < p.SlotsPerDay; i++ {
			// wall-clock arithmetic keeps the hour fixed across DST changes
			startsAt := time.Date(y, m, d+day, p.StartHour, i*p.IntervalMinutes, 0, 0, loc)
			slots = append(slots, entity.Slot{
				ID:          fmt.Sprintf("slot_%s_%02d_%d", startsAt.Format(slotDateLayout), startsAt.Hour(), i),
				Title:       startsAt.Format(slotTitleLayout),
				Description: startsAt.Format(slotDescriptionLayout),
				StartsAt:    startsAt,
			})
		}
	}
	return slots
}

// SlotCatalog regenerates the configured catalog window on demand
type SlotCatalog struct {
	cfg      config.BookingConfig
	location *time.Location
	now      func() time.Time
}

func NewSlotCatalog(cfg config.BookingConfig) (*SlotCatalog, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load booking timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}
	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = 60
	}
	return &SlotCatalog{cfg: cfg, location: loc, now: time.Now}, nil
}

// WithClock replaces the time source; used by tests
func (c *SlotCatalog) WithClock(now func() time.Time) *SlotCatalog {
	c.now = now
	return c
}

// Current returns the catalog starting today in the booking timezone
func (c *SlotCatalog) Current() []entity.Slot {
	return GenerateSlots(CatalogParams{
		StartDate:       c.now().In(c.location),
		Days:            c.cfg.Days,
		SlotsPerDay:     c.cfg.SlotsPerDay,
		StartHour:       c.cfg.StartHour,
		IntervalMinutes: c.cfg.IntervalMinutes,
	})
}

// Find looks id up in a freshly regenerated catalog
func (c *SlotCatalog) Find(id string) (entity.Slot, bool) {
	for _, slot := range c.Current() {
		if slot.ID == id {
			return slot, true
		}
	}
	return entity.Slot{}, false
}
