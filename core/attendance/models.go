package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/user"
)

// Session is one presence interval of an attendee in a meeting.
// It is open until LeftAt is set.
type Session struct {
	ID                int64       `json:"id" db:"id"`
	JoinCode          string      `json:"join_code" db:"join_code"` // scheduled join code or ad-hoc external ID
	ProviderMeetingID null.String `json:"provider_meeting_id" db:"provider_meeting_id"`
	AttendeeID        string      `json:"attendee_id" db:"attendee_id"`
	ExternalUserID    null.String `json:"external_user_id" db:"external_user_id"`
	Role              string      `json:"role" db:"role"`
	JoinedAt          time.Time   `json:"joined_at" db:"joined_at"` // UTC, server time
	LeftAt            null.Time   `json:"left_at" db:"left_at"`
	DurationSeconds   null.Int    `json:"duration_seconds" db:"duration_seconds"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

func (s Session) IsOpen() bool { return !s.LeftAt.Valid }

// close sets the leave time; clock skew never yields a negative duration.
func (s *Session) close(at time.Time) {
	at = at.UTC()
	s.LeftAt = null.TimeFrom(at)
	secs := int(at.Sub(s.JoinedAt).Seconds())
	if secs < 0 {
		secs = 0
	}
	s.DurationSeconds = null.IntFrom(secs)
	s.UpdatedAt = at
}

// JoinRequest records an attendee joining a meeting.
// chime_meeting_id is accepted as an alias of provider_meeting_id.
type JoinRequest struct {
	JoinCode          string `json:"join_code" validate:"notblank,max=64"`
	ProviderMeetingID string `json:"provider_meeting_id" validate:"max=128"`
	ChimeMeetingID    string `json:"chime_meeting_id" validate:"max=128"`
	AttendeeID        string `json:"attendee_id" validate:"notblank,max=128"`
	ExternalUserID    string `json:"external_user_id" validate:"max=512"`
	Role              string `json:"role" validate:"max=32"`
}

func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	jr.JoinCode = core.CleanString(jr.JoinCode)
	jr.ProviderMeetingID = core.CleanString(jr.ProviderMeetingID)
	jr.ChimeMeetingID = core.CleanString(jr.ChimeMeetingID)
	if jr.ProviderMeetingID == "" {
		jr.ProviderMeetingID = jr.ChimeMeetingID
	}
	jr.AttendeeID = core.CleanString(jr.AttendeeID)
	jr.ExternalUserID = core.CleanString(jr.ExternalUserID)
	jr.Role = core.CleanString(jr.Role, true /* lower */)
	if jr.Role == "" {
		jr.Role = user.RoleExaminee
	}
	return validate.Struct(jr)
}

// LeaveRequest records an attendee leaving a meeting.
type LeaveRequest struct {
	JoinCode   string `json:"join_code" validate:"notblank,max=64"`
	AttendeeID string `json:"attendee_id" validate:"notblank,max=128"`
}

func (lr *LeaveRequest) Validate(validate *validator.Validate) error {
	lr.JoinCode = core.CleanString(lr.JoinCode)
	lr.AttendeeID = core.CleanString(lr.AttendeeID)
	return validate.Struct(lr)
}

// LeaveResult tells whether a session was closed; the closed Session is inlined when it was.
type LeaveResult struct {
	OK      bool `json:"ok"`
	Updated bool `json:"updated"`
	*Session
}
