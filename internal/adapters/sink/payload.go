package sink

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/smsrelay/internal/domain/model"
)

// timeLayout is ISO-8601 UTC with milliseconds, as the classification
// backend expects.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Payload is the JSON document delivered for one message. message and
// messageContent carry the same body; the backend validates the former and
// older clients read the latter.
type Payload struct {
	UserID         string `json:"userId"`
	Sender         string `json:"sender"`
	Message        string `json:"message"`
	MessageContent string `json:"messageContent"`
	Time           string `json:"time"`
}

// NewPayload builds the delivery document for e on behalf of subjectID.
func NewPayload(subjectID string, e model.Event) Payload { //nolint:gocritic // events are copied on every hand-off
	return Payload{
		UserID:         subjectID,
		Sender:         e.SourceID,
		Message:        e.Content,
		MessageContent: e.Content,
		Time:           e.OccurredAt.UTC().Format(timeLayout),
	}
}

var (
	deviceOnce sync.Once
	deviceID   string
)

// SubjectID returns configured when set, otherwise a random device id that
// stays the same for the life of the process.
func SubjectID(configured string) string {
	if configured != "" {
		return configured
	}
	deviceOnce.Do(func() { deviceID = uuid.NewString() })
	return deviceID
}

// requestID returns a unique id for one delivery attempt.
func requestID() string {
	return uuid.NewString()
}

func nowUTC() time.Time { return time.Now().UTC() }
