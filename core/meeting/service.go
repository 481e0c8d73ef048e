package meeting

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/user"
)

var (
	ErrNotFound           = core.NewNotFoundError("Scheduled meeting not found")
	ErrLegacyNotFound     = core.NewNotFoundError("Meeting not found")
	ErrNotAllowed         = core.NewPermissionError("Not allowed")
	ErrNotStarted         = core.NewPermissionError("Meeting not started")
	ErrAlreadyEnded       = core.NewConflictError("Meeting already ended")
	ErrRecordingsDisabled = errors.New("recording storage is not configured")

	// ErrJoinCodeExists is returned by repositories on a unique join code violation.
	ErrJoinCodeExists = errors.New("a meeting with this join code already exists")

	joinCodeAttempts   = 3
	joinCodePrefix     = "exam-"
	defaultContentType = "video/webm"
	unsafeKeyChars     = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

type (
	Repository interface {
		// CreateMeeting returns ErrJoinCodeExists on a join code collision.
		CreateMeeting(ctx context.Context, m ScheduledMeeting, exec ...core.DBExecutor) (ScheduledMeeting, error)
		GetMeetingByJoinCode(ctx context.Context, joinCode string, exec ...core.DBExecutor) (ScheduledMeeting, error)
		// GetMeetingForUpdate is GetMeetingByJoinCode holding a row lock until the end of the transaction.
		GetMeetingForUpdate(ctx context.Context, joinCode string, exec ...core.DBExecutor) (ScheduledMeeting, error)
		// QueryMeetingsByCreator lists the meetings created by userID, newest first.
		QueryMeetingsByCreator(ctx context.Context, userID int64, exec ...core.DBExecutor) ([]ScheduledMeeting, error)
		UpdateMeeting(ctx context.Context, m ScheduledMeeting, exec ...core.DBExecutor) (ScheduledMeeting, error)
		DeleteMeeting(ctx context.Context, id int64, exec ...core.DBExecutor) error
	}

	Service struct {
		db         core.DB
		repo       Repository
		provider   Provider
		recordings RecordingStorage
		legacy     *legacyCache
		logger     core.Logger
		conf       *core.Config
	}
)

// NewService builds the meeting Service. recordings may be nil when no storage is configured.
func NewService(
	db core.DB,
	repo Repository,
	provider Provider,
	recordings RecordingStorage,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		db:         db,
		repo:       repo,
		provider:   provider,
		recordings: recordings,
		legacy:     newLegacyCache(conf.LegacyMeetingCache.Size, conf.LegacyMeetingCache.TTL),
		logger:     logger,
		conf:       conf,
	}
}

// GenerateJoinCode returns a URL-safe, human-shareable code.
func GenerateJoinCode() string {
	return joinCodePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func (svc *Service) defaultRegion(region string) string {
	if region != "" {
		return region
	}
	if svc.conf.AWS.DefaultMediaRegion != "" {
		return svc.conf.AWS.DefaultMediaRegion
	}
	return "us-east-1"
}

// Create schedules a new meeting owned by actor.
// The teacher name defaults to the actor's display name, else their email.
func (svc *Service) Create(ctx context.Context, actor user.User, nm NewMeeting) (ScheduledMeeting, error) {
	now := time.Now().UTC()
	m := ScheduledMeeting{
		Title:           core.NullString(nm.Title),
		TeacherName:     core.NullString(nm.TeacherName),
		CreatedByUserID: actor.ID,
		Region:          svc.defaultRegion(nm.Region),
		Status:          StatusScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !m.TeacherName.Valid {
		m.TeacherName = null.StringFrom(actor.Name())
	}
	if nm.ScheduledStartAt != nil {
		m.ScheduledStartAt = null.TimeFrom(nm.ScheduledStartAt.UTC())
	}
	if nm.ScheduledEndAt != nil {
		m.ScheduledEndAt = null.TimeFrom(nm.ScheduledEndAt.UTC())
	}

	var err error
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		m.JoinCode = GenerateJoinCode()
		var created ScheduledMeeting
		if created, err = svc.repo.CreateMeeting(ctx, m); err == nil {
			return created, nil
		}
		if errors.Cause(err) != ErrJoinCodeExists {
			break
		}
	}
	return ScheduledMeeting{}, errors.Wrap(err, "creating scheduled meeting")
}

// ListFor returns the meetings created by actor. Examinees own no meetings.
func (svc *Service) ListFor(ctx context.Context, actor user.User) ([]ScheduledMeeting, error) {
	if !actor.IsProctor() {
		return []ScheduledMeeting{}, nil
	}
	meetings, err := svc.repo.QueryMeetingsByCreator(ctx, actor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying scheduled meetings")
	}
	return meetings, nil
}

// GetOwned returns the meeting identified by joinCode if actor owns it.
func (svc *Service) GetOwned(ctx context.Context, actor user.User, joinCode string, exec ...core.DBExecutor) (ScheduledMeeting, error) {
	m, err := svc.repo.GetMeetingByJoinCode(ctx, core.CleanString(joinCode), exec...)
	if err != nil {
		return ScheduledMeeting{}, err
	}
	if !m.IsOwnedBy(actor.ID) {
		return ScheduledMeeting{}, ErrNotAllowed
	}
	return m, nil
}

func (svc *Service) lockOwned(ctx context.Context, exec core.DBExecutor, actor user.User, joinCode string) (ScheduledMeeting, error) {
	m, err := svc.repo.GetMeetingForUpdate(ctx, core.CleanString(joinCode), exec)
	if err != nil {
		return ScheduledMeeting{}, err
	}
	if !m.IsOwnedBy(actor.ID) {
		return ScheduledMeeting{}, ErrNotAllowed
	}
	return m, nil
}

// Start moves an owned meeting to started and allocates (or re-uses) its provider meeting.
func (svc *Service) Start(ctx context.Context, actor user.User, joinCode string) (StartResult, error) {
	var res StartResult
	err := core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		m, err := svc.lockOwned(ctx, exec, actor, joinCode)
		if err != nil {
			return err
		}
		pm, err := svc.start(ctx, exec, m)
		if err != nil {
			return err
		}
		res = StartResult{JoinCode: m.JoinCode, Meeting: MeetingResponse{Meeting: pm}}
		return nil
	})
	if err != nil {
		return StartResult{}, errors.Wrap(err, "starting meeting")
	}
	return res, nil
}

// start is the owner transition shared by Start and Join.
func (svc *Service) start(ctx context.Context, exec core.DBExecutor, m ScheduledMeeting) (Meeting, error) {
	if m.IsEnded() {
		return Meeting{}, ErrAlreadyEnded
	}

	pm, err := svc.getOrCreateProviderMeeting(ctx, m.JoinCode, m.Region, m.ProviderMeetingID.String)
	if err != nil {
		return Meeting{}, err
	}
	if pm.MeetingId != "" {
		m.ProviderMeetingID = null.StringFrom(pm.MeetingId)
	}
	m.Status = StatusStarted
	m.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateMeeting(ctx, m, exec); err != nil {
		return Meeting{}, errors.Wrap(err, "updating scheduled meeting")
	}
	return pm, nil
}

// End moves an owned meeting to ended and releases its provider meeting (best-effort).
// Ending an ended meeting is a no-op.
func (svc *Service) End(ctx context.Context, actor user.User, joinCode string) (ScheduledMeeting, error) {
	var m ScheduledMeeting
	err := core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		if m, err = svc.lockOwned(ctx, exec, actor, joinCode); err != nil {
			return err
		}
		if m.IsEnded() {
			return nil
		}

		if m.ProviderMeetingID.Valid {
			err = svc.provider.DeleteMeeting(ctx, m.ProviderMeetingID.String)
			if err != nil && errors.Cause(err) != ErrProviderMeetingNotFound {
				svc.logger.Warn(fmt.Sprintf("releasing provider meeting %s: %v", m.ProviderMeetingID.String, err), err)
			}
		}
		m.Status = StatusEnded
		m.UpdatedAt = time.Now().UTC()
		m, err = svc.repo.UpdateMeeting(ctx, m, exec)
		return err
	})
	if err != nil {
		return ScheduledMeeting{}, errors.Wrap(err, "ending meeting")
	}
	return m, nil
}

// Update edits the display metadata and schedule window of an owned meeting that has not ended.
func (svc *Service) Update(ctx context.Context, actor user.User, joinCode string, um UpdateMeeting) (ScheduledMeeting, error) {
	var m ScheduledMeeting
	err := core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		if m, err = svc.lockOwned(ctx, exec, actor, joinCode); err != nil {
			return err
		}
		if m.IsEnded() {
			return ErrAlreadyEnded
		}
		if err = um.apply(&m); err != nil {
			return err
		}
		m.UpdatedAt = time.Now().UTC()
		m, err = svc.repo.UpdateMeeting(ctx, m, exec)
		return err
	})
	if err != nil {
		return ScheduledMeeting{}, errors.Wrap(err, "updating meeting")
	}
	return m, nil
}

// Delete removes an owned meeting, whatever its status.
func (svc *Service) Delete(ctx context.Context, actor user.User, joinCode string) error {
	return core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		m, err := svc.lockOwned(ctx, exec, actor, joinCode)
		if err != nil {
			return err
		}
		return svc.repo.DeleteMeeting(ctx, m.ID, exec)
	})
}

// Join resolves the provider meeting for externalID on behalf of actor.
//
// For a scheduled meeting, its owner starts (or re-uses) it like Start, while anybody else may only
// join once it has started. Unknown IDs fall back to ad-hoc meetings held in the legacy cache.
func (svc *Service) Join(ctx context.Context, actor user.User, jr JoinRequest) (MeetingResponse, error) {
	var (
		pm     Meeting
		legacy bool
	)
	err := core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		m, err := svc.repo.GetMeetingForUpdate(ctx, jr.ExternalMeetingID, exec)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				legacy = true
				return nil
			}
			return err
		}

		if actor.IsProctor() && m.IsOwnedBy(actor.ID) {
			pm, err = svc.start(ctx, exec, m)
			return err
		}
		pm, err = svc.joinStarted(ctx, exec, m)
		return err
	})
	if err != nil {
		return MeetingResponse{}, errors.Wrap(err, "joining meeting")
	}
	if legacy {
		if pm, err = svc.joinLegacy(ctx, jr.ExternalMeetingID, svc.defaultRegion(jr.Region)); err != nil {
			return MeetingResponse{}, errors.Wrap(err, "joining unscheduled meeting")
		}
	}
	return MeetingResponse{Meeting: pm}, nil
}

// joinStarted re-resolves the provider meeting of a started meeting, persisting a changed ID.
func (svc *Service) joinStarted(ctx context.Context, exec core.DBExecutor, m ScheduledMeeting) (Meeting, error) {
	if !m.IsJoinable() {
		return Meeting{}, ErrNotStarted
	}

	pm, err := svc.getOrCreateProviderMeeting(ctx, m.JoinCode, m.Region, m.ProviderMeetingID.String)
	if err != nil {
		return Meeting{}, err
	}
	if pm.MeetingId != "" && pm.MeetingId != m.ProviderMeetingID.String {
		m.ProviderMeetingID = null.StringFrom(pm.MeetingId)
		m.UpdatedAt = time.Now().UTC()
		if _, err = svc.repo.UpdateMeeting(ctx, m, exec); err != nil {
			return Meeting{}, errors.Wrap(err, "updating scheduled meeting")
		}
	}
	return pm, nil
}

// joinLegacy returns the cached provider meeting of an ad-hoc meeting, creating it when missing.
func (svc *Service) joinLegacy(ctx context.Context, externalID, region string) (Meeting, error) {
	if pm, ok, err := svc.confirmLegacy(ctx, externalID); err != nil || ok {
		return pm, err
	}

	pm, err := svc.createProviderMeeting(ctx, externalID, region)
	if err != nil {
		return Meeting{}, err
	}
	svc.legacy.add(externalID, pm)
	return pm, nil
}

// confirmLegacy checks a cached ad-hoc meeting with the provider, evicting it if gone.
func (svc *Service) confirmLegacy(ctx context.Context, externalID string) (Meeting, bool, error) {
	cached, ok := svc.legacy.get(externalID)
	if !ok {
		return Meeting{}, false, nil
	}
	if cached.MeetingId == "" {
		svc.legacy.remove(externalID)
		return Meeting{}, false, nil
	}

	if _, err := svc.provider.GetMeeting(ctx, cached.MeetingId); err != nil {
		if errors.Cause(err) == ErrProviderMeetingNotFound {
			svc.legacy.remove(externalID)
			return Meeting{}, false, nil
		}
		return Meeting{}, false, errors.Wrap(err, "getting provider meeting")
	}
	return cached, true, nil
}

// CreateAttendee issues a join credential for a provider meeting. Credentials are never reused.
func (svc *Service) CreateAttendee(ctx context.Context, meetingID string, ar AttendeeRequest) (AttendeeResponse, error) {
	att, err := svc.provider.CreateAttendee(ctx, core.CleanString(meetingID), ar.ExternalUserID)
	if err != nil {
		if errors.Cause(err) == ErrProviderMeetingNotFound {
			return AttendeeResponse{}, ErrLegacyNotFound
		}
		return AttendeeResponse{}, errors.Wrap(err, "creating attendee")
	}
	return AttendeeResponse{Attendee: att}, nil
}

// GuestJoin lets an unauthenticated user join a started scheduled meeting, or an ad-hoc meeting
// that already exists. It never creates meetings.
func (svc *Service) GuestJoin(ctx context.Context, gr GuestJoinRequest) (GuestJoinResponse, error) {
	var (
		pm     Meeting
		legacy bool
	)
	err := core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		m, err := svc.repo.GetMeetingForUpdate(ctx, gr.ExternalMeetingID, exec)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				legacy = true
				return nil
			}
			return err
		}
		pm, err = svc.joinStarted(ctx, exec, m)
		return err
	})
	if err != nil {
		return GuestJoinResponse{}, errors.Wrap(err, "guest joining meeting")
	}

	if legacy {
		var ok bool
		if pm, ok, err = svc.confirmLegacy(ctx, gr.ExternalMeetingID); err != nil {
			return GuestJoinResponse{}, errors.Wrap(err, "guest joining unscheduled meeting")
		}
		if !ok {
			return GuestJoinResponse{}, ErrLegacyNotFound
		}
	}

	att, err := svc.provider.CreateAttendee(ctx, pm.MeetingId, gr.ExternalUserID)
	if err != nil {
		return GuestJoinResponse{}, errors.Wrap(err, "creating attendee")
	}
	return GuestJoinResponse{Meeting: pm, Attendee: att}, nil
}

// PresignRecording returns an upload URL for a recording of an owned meeting.
func (svc *Service) PresignRecording(ctx context.Context, actor user.User, joinCode string, pr PresignRequest) (PresignedUpload, error) {
	m, err := svc.GetOwned(ctx, actor, joinCode)
	if err != nil {
		return PresignedUpload{}, err
	}
	if svc.recordings == nil {
		return PresignedUpload{}, ErrRecordingsDisabled
	}

	contentType := pr.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	up, err := svc.recordings.PresignUpload(ctx, RecordingKey(m.JoinCode, pr.FileName, time.Now()), contentType)
	if err != nil {
		return PresignedUpload{}, errors.Wrap(err, "presigning recording upload")
	}
	return up, nil
}

// RecordingKey builds the storage key of a recording: recordings/<join code>/<timestamp>-<file name>.
func RecordingKey(joinCode, fileName string, at time.Time) string {
	name := unsafeKeyChars.ReplaceAllString(path.Base(fileName), "_")
	if name == "" || name == "." || name == "_" {
		name = "recording.webm"
	}
	return path.Join("recordings", joinCode, fmt.Sprintf("%s-%s", at.UTC().Format("20060102T150405Z"), name))
}

// getOrCreateProviderMeeting fetches the stored provider meeting and creates a new one only when
// the provider reports it gone. Other provider errors propagate.
func (svc *Service) getOrCreateProviderMeeting(ctx context.Context, externalID, region, providerID string) (Meeting, error) {
	if providerID != "" {
		pm, err := svc.provider.GetMeeting(ctx, providerID)
		if err == nil {
			return pm, nil
		}
		if errors.Cause(err) != ErrProviderMeetingNotFound {
			return Meeting{}, errors.Wrap(err, "getting provider meeting")
		}
	}
	return svc.createProviderMeeting(ctx, externalID, region)
}

func (svc *Service) createProviderMeeting(ctx context.Context, externalID, region string) (Meeting, error) {
	pm, err := svc.provider.CreateMeeting(ctx, CreateMeetingInput{
		ClientRequestToken: uuid.NewString(),
		MediaRegion:        svc.defaultRegion(region),
		ExternalMeetingID:  externalID,
	})
	if err != nil {
		return Meeting{}, errors.Wrap(err, "creating provider meeting")
	}
	return pm, nil
}
