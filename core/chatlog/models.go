package chatlog

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/examsurveil/backend/core"
)

const (
	DefaultLimit = 500
	MaxLimit     = 5000
)

// ChatLog is a chat message exchanged in a meeting, unique per (join code, message ID).
type ChatLog struct {
	ID             int64       `json:"id" db:"id"`
	JoinCode       string      `json:"join_code" db:"join_code"`
	MessageID      string      `json:"message_id" db:"message_id"`
	SentAt         null.Time   `json:"ts" db:"sent_at"` // client time, UTC
	Type           null.String `json:"type" db:"msg_type"`
	FromRole       null.String `json:"from_role" db:"from_role"`
	FromAttendeeID null.String `json:"from_attendee_id" db:"from_attendee_id"`
	ToRole         null.String `json:"to_role" db:"to_role"`
	ToAttendeeID   null.String `json:"to_attendee_id" db:"to_attendee_id"`
	Text           string      `json:"text" db:"text"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// NewChatLog is the body of a chat message record call.
// Field names follow the conferencing data message payload.
type NewChatLog struct {
	JoinCode       string `json:"join_code" validate:"notblank,max=64"`
	MessageID      string `json:"message_id" validate:"notblank,max=128"`
	TS             string `json:"ts"`
	Type           string `json:"type" validate:"max=32"`
	FromRole       string `json:"fromRole" validate:"max=32"`
	FromAttendeeID string `json:"fromAttendeeId" validate:"max=128"`
	ToRole         string `json:"toRole" validate:"max=32"`
	ToAttendeeID   string `json:"toAttendeeId" validate:"max=128"`
	Text           string `json:"text" validate:"notblank,max=4096"`
}

func (nc *NewChatLog) Validate(validate *validator.Validate) error {
	nc.JoinCode = core.CleanString(nc.JoinCode)
	nc.MessageID = core.CleanString(nc.MessageID)
	nc.TS = core.CleanString(nc.TS)
	nc.Type = core.CleanString(nc.Type)
	nc.FromRole = core.CleanString(nc.FromRole)
	nc.FromAttendeeID = core.CleanString(nc.FromAttendeeID)
	nc.ToRole = core.CleanString(nc.ToRole)
	nc.ToAttendeeID = core.CleanString(nc.ToAttendeeID)
	nc.Text = core.CleanString(nc.Text)
	return validate.Struct(nc)
}

// Page selects a window of a chat log listing.
type Page struct {
	Limit  int `query:"limit" json:"limit" validate:"min=1,max=5000"`
	Offset int `query:"offset" json:"offset" validate:"min=0"`
}

func NewPage() Page { return Page{Limit: DefaultLimit} }

func (p *Page) Validate(validate *validator.Validate) error {
	return validate.Struct(p)
}

var tsLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 client timestamp into UTC.
// Values without an offset are taken as UTC; unparseable values give null.
func ParseTimestamp(ts string) null.Time {
	ts = core.CleanString(ts)
	if ts == "" {
		return null.Time{}
	}
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return null.TimeFrom(t.UTC())
		}
	}
	return null.Time{}
}
