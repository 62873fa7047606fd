package entity

// InboundEvent is the canonical form of one provider webhook delivery
type InboundEvent struct {
	Sender      string `validate:"required,chat_address"`
	Recipient   string `validate:"required,chat_address"`
	Text        string
	SelectionID string
	ButtonID    string
	MessageID   string
}

// Intent is the classified purpose of one inbound event
type Intent string

const (
	IntentGreeting        Intent = "greeting"
	IntentStartBooking    Intent = "start_booking"
	IntentStartReschedule Intent = "start_reschedule"
	IntentStartCancel     Intent = "start_cancel"
	IntentSlotSelection   Intent = "slot_selection"
	IntentCancelSelection Intent = "cancel_selection"
	IntentNameCapture     Intent = "name_capture"
	IntentFallback        Intent = "fallback"
)

// Menu button ids sent by the greeting template
const (
	ButtonStartBooking    = "start-booking"
	ButtonStartReschedule = "start-reschedule"
	ButtonStartCancel     = "start-cancel"
)
