package service

import (
	"strings"

	"whatsapp-booking-bot/internal/domain/entity"
)

var greetingWords = map[string]struct{}{
	"hi":    {},
	"hello": {},
	"hai":   {},
}

// menuButtons maps button ids, including ids still deployed in older templates, to their intent
var menuButtons = map[string]entity.Intent{
	entity.ButtonStartBooking:    entity.IntentStartBooking,
	entity.ButtonStartReschedule: entity.IntentStartReschedule,
	entity.ButtonStartCancel:     entity.IntentStartCancel,
	"schedule_appointment":       entity.IntentStartBooking,
	"reschedule_appoinment":      entity.IntentStartReschedule,
	"cancel_appoinmnet":          entity.IntentStartCancel,
}

// PatientLookup loads the sender's patient row, nil when absent
type PatientLookup func() (*entity.Patient, error)

// IsGreeting matches the fixed greeting set, ignoring case and surrounding space
func IsGreeting(text string) bool {
	_, ok := greetingWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// Classify maps an event to exactly one intent. Rules are evaluated in order and the
// first match wins; lookup is only consulted when the earlier rules did not match.
func Classify(event *entity.InboundEvent, lookup PatientLookup) (entity.Intent, *entity.Patient, error) {
	if IsGreeting(event.Text) {
		return entity.IntentGreeting, nil, nil
	}
	if event.ButtonID != "" {
		if intent, ok := menuButtons[event.ButtonID]; ok {
			return intent, nil, nil
		}
	}
	if IsSlotID(event.SelectionID) {
		return entity.IntentSlotSelection, nil, nil
	}
	if strings.HasPrefix(event.SelectionID, entity.CancelSelectionPrefix) {
		return entity.IntentCancelSelection, nil, nil
	}
	if event.Text == "" {
		return entity.IntentFallback, nil, nil
	}

	patient, err := lookup()
	if err != nil {
		return "", nil, err
	}
	if patient != nil && !patient.HasName() {
		return entity.IntentNameCapture, patient, nil
	}
	return entity.IntentFallback, patient, nil
}
