package meeting

import (
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/examsurveil/backend/core"
)

// Statuses of a ScheduledMeeting. Transitions only move forward.
const (
	StatusScheduled = "scheduled"
	StatusStarted   = "started"
	StatusEnded     = "ended"
)

type ScheduledMeeting struct {
	ID                int64       `json:"id" db:"id"`
	JoinCode          string      `json:"join_code" db:"join_code"` // also the provider external meeting ID
	Title             null.String `json:"title" db:"title"`
	TeacherName       null.String `json:"teacher_name" db:"teacher_name"`
	CreatedByUserID   int64       `json:"-" db:"created_by_user_id"`
	ScheduledStartAt  null.Time   `json:"scheduled_start_at" db:"scheduled_start_at"`
	ScheduledEndAt    null.Time   `json:"scheduled_end_at" db:"scheduled_end_at"`
	Region            string      `json:"region" db:"region"`
	ProviderMeetingID null.String `json:"provider_meeting_id" db:"provider_meeting_id"`
	Status            string      `json:"status" db:"status"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (m ScheduledMeeting) IsEnded() bool { return m.Status == StatusEnded }

// IsJoinable reports whether non-owners may join.
func (m ScheduledMeeting) IsJoinable() bool {
	return m.Status == StatusStarted && m.ProviderMeetingID.Valid && m.ProviderMeetingID.String != ""
}

func (m ScheduledMeeting) IsOwnedBy(userID int64) bool { return m.CreatedByUserID == userID }

const maxTextLen = 255

var errEndBeforeStart = errors.New("scheduled_end_at must be after scheduled_start_at")

// NewMeeting contains information needed to schedule a meeting.
type NewMeeting struct {
	Title            string     `json:"title" validate:"max=255"`
	TeacherName      string     `json:"teacher_name" validate:"max=255"`
	ScheduledStartAt *time.Time `json:"scheduled_start_at"`
	ScheduledEndAt   *time.Time `json:"scheduled_end_at"`
	Region           string     `json:"region" validate:"omitempty,region"`
}

func (nm *NewMeeting) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.TeacherName = core.CleanString(nm.TeacherName)
	nm.Region = core.CleanString(nm.Region, true /* lower */)

	if err := validate.Struct(nm); err != nil {
		return err
	}
	if nm.ScheduledStartAt != nil && nm.ScheduledEndAt != nil && nm.ScheduledEndAt.Before(*nm.ScheduledStartAt) {
		return core.NewValidationError(errEndBeforeStart, core.FieldError{Field: "scheduled_end_at", Error: errEndBeforeStart.Error()})
	}
	return nil
}

// UpdateMeeting defines what information may be provided to edit a ScheduledMeeting.
// Only sent fields are applied; null clears them.
type UpdateMeeting struct {
	Title            core.PatchString `json:"title"`
	TeacherName      core.PatchString `json:"teacher_name"`
	ScheduledStartAt core.PatchTime   `json:"scheduled_start_at"`
	ScheduledEndAt   core.PatchTime   `json:"scheduled_end_at"`
}

func (um *UpdateMeeting) Validate() error {
	var fldErrs []core.FieldError
	fields := []struct {
		name string
		fld  *core.PatchString
	}{{"title", &um.Title}, {"teacher_name", &um.TeacherName}}
	for _, f := range fields {
		if f.fld.Set {
			f.fld.Value = core.NullString(f.fld.Value.String)
			// counted in characters, like the create validator
			if utf8.RuneCountInString(f.fld.Value.String) > maxTextLen {
				fldErrs = append(fldErrs, core.FieldError{Field: f.name, Error: "must be a maximum of 255 characters in length"})
			}
		}
	}
	if fldErrs != nil {
		return core.NewValidationError(errors.New("invalid meeting"), fldErrs...)
	}
	return nil
}

func (um UpdateMeeting) apply(m *ScheduledMeeting) error {
	if um.Title.Set {
		m.Title = um.Title.Value
	}
	if um.TeacherName.Set {
		m.TeacherName = um.TeacherName.Value
	}
	if um.ScheduledStartAt.Set {
		m.ScheduledStartAt = utcTime(um.ScheduledStartAt.Value)
	}
	if um.ScheduledEndAt.Set {
		m.ScheduledEndAt = utcTime(um.ScheduledEndAt.Value)
	}
	if m.ScheduledStartAt.Valid && m.ScheduledEndAt.Valid && m.ScheduledEndAt.Time.Before(m.ScheduledStartAt.Time) {
		return core.NewValidationError(errEndBeforeStart, core.FieldError{Field: "scheduled_end_at", Error: errEndBeforeStart.Error()})
	}
	return nil
}

func utcTime(t null.Time) null.Time {
	if !t.Valid {
		return null.Time{}
	}
	return null.TimeFrom(t.Time.UTC())
}

// JoinRequest is the body of a start/join meeting call.
type JoinRequest struct {
	ExternalMeetingID string `json:"external_meeting_id" validate:"notblank,max=64"`
	Region            string `json:"region" validate:"omitempty,region"`
}

func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	jr.ExternalMeetingID = core.CleanString(jr.ExternalMeetingID)
	jr.Region = core.CleanString(jr.Region, true /* lower */)
	return validate.Struct(jr)
}

// AttendeeRequest is the body of an attendee credential call.
type AttendeeRequest struct {
	ExternalUserID string `json:"external_user_id" validate:"notblank,max=64"`
}

func (ar *AttendeeRequest) Validate(validate *validator.Validate) error {
	ar.ExternalUserID = core.CleanString(ar.ExternalUserID)
	return validate.Struct(ar)
}

// GuestJoinRequest is the body of an unauthenticated join call.
type GuestJoinRequest struct {
	ExternalMeetingID string `json:"external_meeting_id" validate:"notblank,max=64"`
	ExternalUserID    string `json:"external_user_id" validate:"notblank,max=64"`
	Region            string `json:"region" validate:"omitempty,region"`
}

func (gr *GuestJoinRequest) Validate(validate *validator.Validate) error {
	gr.ExternalMeetingID = core.CleanString(gr.ExternalMeetingID)
	gr.ExternalUserID = core.CleanString(gr.ExternalUserID)
	gr.Region = core.CleanString(gr.Region, true /* lower */)
	return validate.Struct(gr)
}

// StartResult is returned when a ScheduledMeeting is started.
type StartResult struct {
	JoinCode string          `json:"join_code"`
	Meeting  MeetingResponse `json:"meeting"`
}

// PresignRequest asks for an upload URL for a proctor recording.
type PresignRequest struct {
	FileName    string `json:"file_name" validate:"notblank,max=255"`
	ContentType string `json:"content_type" validate:"max=255"`
}

func (pr *PresignRequest) Validate(validate *validator.Validate) error {
	pr.FileName = core.CleanString(pr.FileName)
	pr.ContentType = core.CleanString(pr.ContentType)
	return validate.Struct(pr)
}
