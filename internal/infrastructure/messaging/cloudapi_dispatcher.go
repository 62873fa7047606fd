package messaging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"whatsapp-booking-bot/config"
	"whatsapp-booking-bot/internal/domain/entity"
	"whatsapp-booking-bot/internal/domain/gateway"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var cloudAPITracer = otel.Tracer("whatsapp-booking-bot/messaging/cloudapi")

// ProviderError is a non-2xx answer from the messaging provider
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("messaging provider returned %d: %s", e.StatusCode, e.Body)
}

// CloudAPIDispatcher sends messages through the WhatsApp Business Cloud API
type CloudAPIDispatcher struct {
	endpoint    string
	accessToken string
	language    string
	httpClient  *http.Client
	log         *logrus.Logger
}

var _ gateway.MessageDispatcher = (*CloudAPIDispatcher)(nil)

func NewCloudAPIDispatcher(cfg config.WhatsAppConfig, log *logrus.Logger) *CloudAPIDispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CloudAPIDispatcher{
		endpoint:    fmt.Sprintf("%s/%s/messages", strings.TrimRight(cfg.APIBaseURL, "/"), cfg.PhoneNumberID),
		accessToken: cfg.AccessToken,
		language:    cfg.TemplateLang,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log,
	}
}

type cloudMessage struct {
	MessagingProduct string            `json:"messaging_product"`
	RecipientType    string            `json:"recipient_type"`
	To               string            `json:"to"`
	Type             string            `json:"type"`
	Text             *cloudText        `json:"text,omitempty"`
	Template         *cloudTemplate    `json:"template,omitempty"`
	Interactive      *cloudInteractive `json:"interactive,omitempty"`
}

type cloudText struct {
	Body string `json:"body"`
}

type cloudTemplate struct {
	Name       string           `json:"name"`
	Language   cloudLanguage    `json:"language"`
	Components []cloudComponent `json:"components,omitempty"`
}

type cloudLanguage struct {
	Code string `json:"code"`
}

type cloudComponent struct {
	Type       string           `json:"type"`
	Parameters []cloudParameter `json:"parameters"`
}

type cloudParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type cloudInteractive struct {
	Type   string       `json:"type"`
	Header *cloudHeader `json:"header,omitempty"`
	Body   cloudText    `json:"body"`
	Footer *cloudText   `json:"footer,omitempty"`
	Action cloudAction  `json:"action"`
}

type cloudHeader struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type cloudAction struct {
	Button   string         `json:"button"`
	Sections []cloudSection `json:"sections"`
}

type cloudSection struct {
	Title string     `json:"title"`
	Rows  []cloudRow `json:"rows"`
}

type cloudRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (d *CloudAPIDispatcher) envelope(to, kind string) cloudMessage {
	return cloudMessage{MessagingProduct: "whatsapp", RecipientType: "individual", To: to, Type: kind}
}

func (d *CloudAPIDispatcher) SendText(ctx context.Context, to, body string) error {
	msg := d.envelope(to, "text")
	msg.Text = &cloudText{Body: body}
	return d.post(ctx, entity.OutboundKindText, msg)
}

func (d *CloudAPIDispatcher) SendTemplate(ctx context.Context, to, templateName string, params []string) error {
	msg := d.envelope(to, "template")
	msg.Template = &cloudTemplate{Name: templateName, Language: cloudLanguage{Code: d.language}}
	if len(params) > 0 {
		parameters := make([]cloudParameter, len(params))
		for i, p := range params {
			parameters[i] = cloudParameter{Type: "text", Text: p}
		}
		msg.Template.Components = []cloudComponent{{Type: "body", Parameters: parameters}}
	}
	return d.post(ctx, entity.OutboundKindTemplate, msg)
}

func (d *CloudAPIDispatcher) SendSelectableList(ctx context.Context, to string, list entity.SelectableList) error {
	rows := make([]cloudRow, len(list.Items))
	for i, item := range list.Items {
		rows[i] = cloudRow{ID: item.ID, Title: item.Title, Description: item.Description}
	}

	interactive := &cloudInteractive{
		Type: "list",
		Body: cloudText{Body: list.Body},
		Action: cloudAction{
			Button:   list.ButtonLabel,
			Sections: []cloudSection{{Title: list.SectionTitle, Rows: rows}},
		},
	}
	if list.Header != "" {
		interactive.Header = &cloudHeader{Type: "text", Text: list.Header}
	}
	if list.Footer != "" {
		interactive.Footer = &cloudText{Body: list.Footer}
	}

	msg := d.envelope(to, "interactive")
	msg.Interactive = interactive
	return d.post(ctx, entity.OutboundKindList, msg)
}

// post sends one message; failures are returned, never retried
func (d *CloudAPIDispatcher) post(ctx context.Context, kind entity.OutboundKind, msg cloudMessage) error {
	ctx, span := cloudAPITracer.Start(ctx, "messaging.cloudapi.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.kind", string(kind)),
		attribute.String("messaging.to", msg.To),
	)

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", kind, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("send %s message: %w", kind, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &ProviderError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		span.SetStatus(codes.Error, perr.Error())
		return perr
	}

	var accepted struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &accepted); err == nil && len(accepted.Messages) > 0 {
		span.SetAttributes(attribute.String("messaging.provider_id", accepted.Messages[0].ID))
		d.log.WithFields(logrus.Fields{"to": msg.To, "kind": kind, "provider_id": accepted.Messages[0].ID}).Info("Message sent")
	}
	return nil
}
