package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mercator-hq/quota-gate/pkg/proxy/middleware"
	"github.com/mercator-hq/quota-gate/pkg/proxy/types"
)

// Notification channels.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// NotifyHandler acknowledges a notification request on one channel. It is
// a delivery stub: the interesting work happened in the admission filter
// before the request got here.
type NotifyHandler struct {
	channel string
}

// NewSMSHandler creates the handler behind POST /api/notify/sms.
func NewSMSHandler() *NotifyHandler {
	return &NotifyHandler{channel: ChannelSMS}
}

// NewEmailHandler creates the handler behind POST /api/notify/email.
func NewEmailHandler() *NotifyHandler {
	return &NotifyHandler{channel: ChannelEmail}
}

// ServeHTTP implements http.Handler.
func (h *NotifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		types.NewBadRequestError("Method not allowed; use POST", r.URL.Path).WriteJSON(w)
		return
	}

	var req types.NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.NewBadRequestError("Request body must be valid JSON", r.URL.Path).WriteJSON(w)
		return
	}
	if err := req.Validate(); err != nil {
		types.NewBadRequestError(err.Error(), r.URL.Path).WriteJSON(w)
		return
	}

	id := uuid.New().String()

	slog.InfoContext(r.Context(), "notification accepted",
		"channel", h.channel,
		"notification_id", id,
		"client_id", middleware.GetClientID(r.Context()),
	)

	resp := types.NotificationResponse{
		Success:   true,
		ID:        id,
		Channel:   h.channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   "Notification queued for delivery",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
