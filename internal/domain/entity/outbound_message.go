package entity

// ListItem is one selectable row of a list prompt; ID comes back verbatim on selection
type ListItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// SelectableList is an interactive list prompt
type SelectableList struct {
	Header       string     `json:"header"`
	Body         string     `json:"body"`
	Footer       string     `json:"footer"`
	ButtonLabel  string     `json:"button_label"`
	SectionTitle string     `json:"section_title"`
	Items        []ListItem `json:"items"`
}

// OutboundKind identifies the outbound message type
type OutboundKind string

const (
	OutboundKindText     OutboundKind = "text"
	OutboundKindTemplate OutboundKind = "template"
	OutboundKindList     OutboundKind = "list"
)

// OutboundMessage is the serialized form used by queue-based dispatch
type OutboundMessage struct {
	Kind         OutboundKind    `json:"kind"`
	To           string          `json:"to"`
	Body         string          `json:"body,omitempty"`
	TemplateName string          `json:"template_name,omitempty"`
	Language     string          `json:"language,omitempty"`
	Parameters   []string        `json:"parameters,omitempty"`
	List         *SelectableList `json:"list,omitempty"`
}
