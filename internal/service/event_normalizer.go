package service

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"whatsapp-booking-bot/internal/domain/entity"
	"whatsapp-booking-bot/pkg/validator"

	"github.com/goccy/go-json"
)

// ErrMissingAddress is returned when the payload carries no usable sender or recipient
var ErrMissingAddress = errors.New("missing sender or recipient address")

var channelPrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// NormalizeAddress strips a channel scheme such as "whatsapp:" and surrounding whitespace
func NormalizeAddress(raw string) string {
	trimmed := strings.TrimSpace(raw)
	return strings.TrimSpace(channelPrefix.ReplaceAllString(trimmed, ""))
}

// SelectionExtractor pulls a selection id out of one family of payload fields.
// An empty result means the next extractor is consulted.
type SelectionExtractor interface {
	Extract(payload map[string]string) string
}

// interactiveExtractor reads the first present interactive field and looks for a
// nested reply container; unparseable values are used verbatim.
type interactiveExtractor struct {
	fields     []string
	containers []string
	idKeys     []string
	directKeys []string
}

func (e interactiveExtractor) Extract(payload map[string]string) string {
	raw := firstValue(payload, e.fields)
	if raw == "" {
		return ""
	}
	parsed, ok := parseObject(raw)
	if !ok {
		return strings.TrimSpace(raw)
	}
	for _, key := range e.containers {
		container, present := parsed[key]
		if !present || container == nil {
			continue
		}
		if obj, isObj := container.(map[string]any); isObj {
			return firstKey(obj, e.idKeys)
		}
		break
	}
	return firstKey(parsed, e.directKeys)
}

// alternateExtractor scans single-value fields in order; a structured value
// yields its id, payload or title, anything else is the id itself.
type alternateExtractor struct {
	fields []string
	keys   []string
}

func (e alternateExtractor) Extract(payload map[string]string) string {
	for _, field := range e.fields {
		raw := strings.TrimSpace(payload[field])
		if raw == "" {
			continue
		}
		if parsed, ok := parseObject(raw); ok {
			if id := firstKey(parsed, e.keys); id != "" {
				return id
			}
		}
		return raw
	}
	return ""
}

// DefaultSelectionExtractors is the provider field priority list; earlier entries win
var DefaultSelectionExtractors = []SelectionExtractor{
	interactiveExtractor{
		fields:     []string{"Interactive", "interactive", "interactive_response", "InteractiveBody"},
		containers: []string{"list_reply", "list", "action", "selected_option"},
		idKeys:     []string{"id", "rowId", "selected_row_id"},
		directKeys: []string{"id", "rowId"},
	},
	alternateExtractor{
		fields: []string{"ListReply", "list_reply", "SelectedRowId", "selected_row_id", "ButtonPayload", "button_payload", "ListId"},
		keys:   []string{"id", "payload", "title"},
	},
}

// DefaultButtonFields lists where quick-reply button ids may arrive
var DefaultButtonFields = []string{"ButtonPayload", "button_payload", "buttonId", "postback"}

var (
	senderFields    = []string{"From", "from"}
	recipientFields = []string{"To", "to"}
	textFields      = []string{"Body", "body", "text"}
	messageIDFields = []string{"MessageSid", "SmsMessageSid", "id"}
)

// EventNormalizer turns a flat provider payload into an entity.InboundEvent
type EventNormalizer struct {
	validator    *validator.CustomValidator
	extractors   []SelectionExtractor
	buttonFields []string
}

func NewEventNormalizer(v *validator.CustomValidator) *EventNormalizer {
	return &EventNormalizer{
		validator:    v,
		extractors:   DefaultSelectionExtractors,
		buttonFields: DefaultButtonFields,
	}
}

func (n *EventNormalizer) Normalize(payload map[string]string) (*entity.InboundEvent, error) {
	event := &entity.InboundEvent{
		Sender:    NormalizeAddress(firstValue(payload, senderFields)),
		Recipient: NormalizeAddress(firstValue(payload, recipientFields)),
		Text:      strings.TrimSpace(firstValue(payload, textFields)),
		MessageID: strings.TrimSpace(firstValue(payload, messageIDFields)),
	}
	if err := n.validator.Validate(event); err != nil {
		return nil, ErrMissingAddress
	}

	for _, extractor := range n.extractors {
		if id := strings.TrimSpace(extractor.Extract(payload)); id != "" {
			event.SelectionID = id
			break
		}
	}
	for _, field := range n.buttonFields {
		if id := strings.TrimSpace(payload[field]); id != "" {
			event.ButtonID = id
			break
		}
	}

	return event, nil
}

func firstValue(payload map[string]string, fields []string) string {
	for _, field := range fields {
		if v := payload[field]; strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseObject(raw string) (map[string]any, bool) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed == nil {
		return nil, false
	}
	return parsed, true
}

func firstKey(obj map[string]any, keys []string) string {
	for _, key := range keys {
		if s := stringify(obj[key]); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
