package testutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/meeting"
	"github.com/examsurveil/backend/core/user"
	"github.com/examsurveil/backend/services/logger"
)

// NewTestConfig returns a deterministic configuration that does not read the environment.
func NewTestConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		AppName:          "ExamSurveil",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:5173",
		DefaultFromEmail: mail.Address{Name: "ExamSurveil", Address: "noreply@test.io"},
		DefaultProctors:  []string{"boss@test.io"},
		Server: core.ServerConfig{
			Host:               "localhost",
			Addr:               ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
			CORSAllowOrigins:   []string{"*"},
		},
		Database: core.DatabaseConfig{InMemory: true},
		AWS: core.AWSConfig{
			Region:             "us-east-1",
			DefaultMediaRegion: "us-east-1",
			PresignExpiry:      15 * time.Minute,
		},
		LegacyMeetingCache: core.CacheConfig{Size: 16, TTL: time.Hour},
	}
}

// NewLogger returns a logger that neither prints nor reports.
func NewLogger(conf *core.Config) core.Logger {
	l := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	l.Enable(false)
	return l
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, email, role string, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr, err := repo.CreateUser(context.Background(), user.User{
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateMeeting(t *testing.T, repo meeting.Repository, owner user.User, joinCode, status string, createdAt ...time.Time) meeting.ScheduledMeeting {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	m, err := repo.CreateMeeting(context.Background(), meeting.ScheduledMeeting{
		JoinCode:        joinCode,
		Title:           null.StringFrom("Exam " + joinCode),
		TeacherName:     null.StringFrom(owner.Name()),
		CreatedByUserID: owner.ID,
		Region:          "us-east-1",
		Status:          status,
		CreatedAt:       tstamp,
		UpdatedAt:       tstamp,
	})
	if err != nil {
		t.Fatalf("CreateMeeting(): %v", err)
	}
	return m
}

// FakeProvider is an in-memory meeting.Provider issuing sequential IDs.
type FakeProvider struct {
	mu        sync.Mutex
	seq       int
	meetings  map[string]meeting.Meeting
	Created   []meeting.CreateMeetingInput
	Deleted   []string
	Attendees []meeting.Attendee
	// Err, when set, is returned by every call.
	Err error
}

var _ meeting.Provider = (*FakeProvider)(nil)

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{meetings: make(map[string]meeting.Meeting)}
}

func (p *FakeProvider) CreateMeeting(_ context.Context, in meeting.CreateMeetingInput) (meeting.Meeting, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return meeting.Meeting{}, p.Err
	}
	p.seq++
	m := meeting.Meeting{
		MeetingId:         fmt.Sprintf("meeting-%d", p.seq),
		ExternalMeetingId: in.ExternalMeetingID,
		MediaRegion:       in.MediaRegion,
		MediaPlacement:    &meeting.MediaPlacement{AudioHostUrl: "wss://audio.test.io"},
	}
	p.meetings[m.MeetingId] = m
	p.Created = append(p.Created, in)
	return m, nil
}

func (p *FakeProvider) GetMeeting(_ context.Context, meetingID string) (meeting.Meeting, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return meeting.Meeting{}, p.Err
	}
	m, ok := p.meetings[meetingID]
	if !ok {
		return meeting.Meeting{}, meeting.ErrProviderMeetingNotFound
	}
	return m, nil
}

func (p *FakeProvider) DeleteMeeting(_ context.Context, meetingID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	if _, ok := p.meetings[meetingID]; !ok {
		return meeting.ErrProviderMeetingNotFound
	}
	delete(p.meetings, meetingID)
	p.Deleted = append(p.Deleted, meetingID)
	return nil
}

func (p *FakeProvider) CreateAttendee(_ context.Context, meetingID, externalUserID string) (meeting.Attendee, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return meeting.Attendee{}, p.Err
	}
	if _, ok := p.meetings[meetingID]; !ok {
		return meeting.Attendee{}, meeting.ErrProviderMeetingNotFound
	}
	p.seq++
	att := meeting.Attendee{
		AttendeeId:     fmt.Sprintf("attendee-%d", p.seq),
		ExternalUserId: externalUserID,
		JoinToken:      fmt.Sprintf("token-%d", p.seq),
	}
	p.Attendees = append(p.Attendees, att)
	return att, nil
}

// Expire drops a meeting as the provider does once it ends on its own.
func (p *FakeProvider) Expire(meetingID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.meetings, meetingID)
}

// Live reports whether the provider still knows meetingID.
func (p *FakeProvider) Live(meetingID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.meetings[meetingID]
	return ok
}

// FakeRecordings is a meeting.RecordingStorage returning predictable URLs.
type FakeRecordings struct{}

var _ meeting.RecordingStorage = FakeRecordings{}

func (FakeRecordings) PresignUpload(_ context.Context, key, _ string) (meeting.PresignedUpload, error) {
	return meeting.PresignedUpload{URL: "https://recordings.test.io/" + key, Key: key, ExpiresIn: 900}, nil
}
