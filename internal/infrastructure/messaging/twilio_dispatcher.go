package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
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

var twilioTracer = otel.Tracer("whatsapp-booking-bot/messaging/twilio")

// ErrContentSIDMissing is returned when a template has no Twilio Content SID
var ErrContentSIDMissing = errors.New("no twilio content sid configured for template")

const whatsappScheme = "whatsapp:"

// TwilioDispatcher sends WhatsApp messages through Twilio's Messages API
type TwilioDispatcher struct {
	endpoint       string
	accountSID     string
	authToken      string
	from           string
	contentSIDs    map[string]string
	listContentSID string
	httpClient     *http.Client
	log            *logrus.Logger
}

var _ gateway.MessageDispatcher = (*TwilioDispatcher)(nil)

func NewTwilioDispatcher(cfg config.TwilioConfig, log *logrus.Logger) *TwilioDispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TwilioDispatcher{
		endpoint:       fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(cfg.APIBaseURL, "/"), cfg.AccountSID),
		accountSID:     cfg.AccountSID,
		authToken:      cfg.AuthToken,
		from:           withWhatsAppScheme(cfg.FromNumber),
		contentSIDs:    cfg.ContentSIDs,
		listContentSID: cfg.ListContentSID,
		httpClient:     &http.Client{Timeout: timeout},
		log:            log,
	}
}

func (d *TwilioDispatcher) SendText(ctx context.Context, to, body string) error {
	form := d.envelope(to)
	form.Set("Body", body)
	return d.post(ctx, entity.OutboundKindText, form)
}

// SendTemplate sends a Content API template. The name is looked up in the
// configured mapping; a name that already is a Content SID (HX...) is used as is.
// Parameters become the numbered variables {{1}}, {{2}}, ...
func (d *TwilioDispatcher) SendTemplate(ctx context.Context, to, templateName string, params []string) error {
	contentSID, ok := d.contentSID(templateName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrContentSIDMissing, templateName)
	}

	variables := make(map[string]string, len(params))
	for i, p := range params {
		variables[strconv.Itoa(i+1)] = p
	}

	form := d.envelope(to)
	form.Set("ContentSid", contentSID)
	if err := setContentVariables(form, variables); err != nil {
		return fmt.Errorf("encode %s message: %w", entity.OutboundKindTemplate, err)
	}
	return d.post(ctx, entity.OutboundKindTemplate, form)
}

// SendSelectableList uses the list-picker content when one is configured:
// {{1}} is the body, then each item takes three variables (id, title, description).
// Without it the list degrades to a plain-text enumeration.
func (d *TwilioDispatcher) SendSelectableList(ctx context.Context, to string, list entity.SelectableList) error {
	form := d.envelope(to)
	if d.listContentSID == "" {
		form.Set("Body", renderListText(list))
		return d.post(ctx, entity.OutboundKindList, form)
	}

	variables := map[string]string{"1": list.Body}
	for i, item := range list.Items {
		base := 2 + i*3
		variables[strconv.Itoa(base)] = item.ID
		variables[strconv.Itoa(base+1)] = item.Title
		variables[strconv.Itoa(base+2)] = item.Description
	}

	form.Set("ContentSid", d.listContentSID)
	if err := setContentVariables(form, variables); err != nil {
		return fmt.Errorf("encode %s message: %w", entity.OutboundKindList, err)
	}
	return d.post(ctx, entity.OutboundKindList, form)
}

func (d *TwilioDispatcher) contentSID(templateName string) (string, bool) {
	if sid, ok := d.contentSIDs[templateName]; ok && sid != "" {
		return sid, true
	}
	if strings.HasPrefix(templateName, "HX") {
		return templateName, true
	}
	return "", false
}

func (d *TwilioDispatcher) envelope(to string) url.Values {
	form := url.Values{}
	form.Set("From", d.from)
	form.Set("To", withWhatsAppScheme(to))
	return form
}

// post sends one message; failures are returned, never retried
func (d *TwilioDispatcher) post(ctx context.Context, kind entity.OutboundKind, form url.Values) error {
	ctx, span := twilioTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.kind", string(kind)),
		attribute.String("messaging.to", form.Get("To")),
	)

	if d.accountSID == "" || d.authToken == "" {
		err := errors.New("twilio credentials missing")
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(d.accountSID, d.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("send %s message: %w", kind, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &ProviderError{StatusCode: resp.StatusCode, Body: formatTwilioError(body)}
		span.SetStatus(codes.Error, perr.Error())
		return perr
	}

	var accepted struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &accepted); err == nil && accepted.SID != "" {
		span.SetAttributes(attribute.String("messaging.provider_id", accepted.SID))
		d.log.WithFields(logrus.Fields{
			"to":          form.Get("To"),
			"kind":        kind,
			"provider_id": accepted.SID,
			"status":      accepted.Status,
		}).Info("Message sent")
	}
	return nil
}

type twilioAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func formatTwilioError(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("code %d: %s", parsed.Code, parsed.Message)
		}
		return parsed.Message
	}
	return trimmed
}

func setContentVariables(form url.Values, variables map[string]string) error {
	if len(variables) == 0 {
		return nil
	}
	encoded, err := json.Marshal(variables)
	if err != nil {
		return err
	}
	form.Set("ContentVariables", string(encoded))
	return nil
}

func renderListText(list entity.SelectableList) string {
	var b strings.Builder
	for _, line := range []string{list.Header, list.Body} {
		if line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	for i, item := range list.Items {
		fmt.Fprintf(&b, "\n%d. %s", i+1, item.Title)
		if item.Description != "" {
			fmt.Fprintf(&b, " - %s", item.Description)
		}
	}
	if list.Footer != "" {
		b.WriteString("\n\n")
		b.WriteString(list.Footer)
	}
	return b.String()
}

func withWhatsAppScheme(address string) string {
	address = strings.TrimSpace(address)
	if address == "" || strings.HasPrefix(address, whatsappScheme) {
		return address
	}
	return whatsappScheme + address
}
