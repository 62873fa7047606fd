package dto

// WebhookResult is what the conversation flow reports back for one inbound event
type WebhookResult struct {
	Status string `json:"status"`
	Intent string `json:"intent,omitempty"`
}
