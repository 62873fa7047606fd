package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"whatsapp-booking-bot/pkg/response"

	"github.com/sirupsen/logrus"
)

const twilioSignatureHeader = "X-Twilio-Signature"

// TwilioSignatureMiddleware rejects webhook calls not signed with the account auth token.
// An empty auth token disables the check.
type TwilioSignatureMiddleware struct {
	authToken  string
	webhookURL string
	log        *logrus.Logger
}

func NewTwilioSignatureMiddleware(authToken, webhookURL string, log *logrus.Logger) *TwilioSignatureMiddleware {
	return &TwilioSignatureMiddleware{authToken: authToken, webhookURL: webhookURL, log: log}
}

func (m *TwilioSignatureMiddleware) Verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get(twilioSignatureHeader)
		if signature == "" {
			response.Forbidden(w, "Missing webhook signature")
			return
		}
		if err := r.ParseForm(); err != nil {
			response.BadRequest(w, "Invalid form body")
			return
		}

		expected := ComputeTwilioSignature(m.authToken, m.callbackURL(r), r.PostForm)
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			m.log.Warnf("Rejected webhook with invalid signature from %s", r.RemoteAddr)
			response.Forbidden(w, "Invalid webhook signature")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// callbackURL is the public URL the provider signed; behind a proxy it must be configured
func (m *TwilioSignatureMiddleware) callbackURL(r *http.Request) string {
	if m.webhookURL != "" {
		return m.webhookURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// ComputeTwilioSignature is base64(HMAC-SHA1(token, url + sorted key/value pairs))
func ComputeTwilioSignature(authToken, callbackURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(callbackURL)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}

	h := hmac.New(sha1.New, []byte(authToken))
	h.Write([]byte(payload.String()))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
