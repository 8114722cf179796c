package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/yourusername/eventsub-receiver/internal/services/eventsub"
)

// WebhookHandler handles incoming EventSub webhook deliveries
type WebhookHandler struct {
	dispatcher   *eventsub.Dispatcher
	maxBodyBytes int64
}

// NewWebhookHandler creates a new webhook handler. maxBodyBytes <= 0 selects the default limit.
func NewWebhookHandler(dispatcher *eventsub.Dispatcher, maxBodyBytes int64) *WebhookHandler {
	return &WebhookHandler{
		dispatcher:   dispatcher,
		maxBodyBytes: maxBodyBytes,
	}
}

// HandleWebhook processes one delivery for POST /webhook/:provider/:event_type
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request, provider, eventType string) {
	log.Printf("[WEBHOOK] Incoming %s webhook for %s", provider, eventType)

	// The exact wire bytes are the signing input, so capture them before anything else.
	body, err := eventsub.ReadRawBody(r.Body, h.maxBodyBytes)
	if err != nil {
		log.Printf("[WEBHOOK_ERROR] Failed to read body: %v", err)
	}

	resp := h.dispatcher.Dispatch(r.Context(), eventsub.Request{
		Provider:   provider,
		EventType:  eventType,
		RemoteAddr: r.RemoteAddr,
		Headers:    r.Header,
		Body:       body,
		BodyErr:    err,
	})

	if resp.StatusCode == http.StatusForbidden {
		log.Printf("[WEBHOOK_ERROR] Blocked %s event with invalid HMAC signature from %s", eventType, r.RemoteAddr)
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp eventsub.Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			log.Printf("[WEBHOOK_ERROR] Failed to write response: %v", err)
		}
	}
}
