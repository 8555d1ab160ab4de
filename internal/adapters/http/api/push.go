package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/smsrelay/internal/adapters/detector"
)

const maxPushBody = 64 << 10

// PushHandler handles push notification requests.
type PushHandler struct {
	pusher Pusher
}

// NewPushHandler creates a new push handler.
func NewPushHandler(pusher Pusher) *PushHandler {
	return &PushHandler{pusher: pusher}
}

// HandlePush handles POST /push requests. Duplicates are not reported;
// every well-formed push is acknowledged as received.
func (h *PushHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	const op = "api.push"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var p detector.Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBody)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	err := h.pusher.Receive(r.Context(), p)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "received"})
	case errors.Is(err, detector.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, detector.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
	}
}
