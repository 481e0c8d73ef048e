package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
)

var (
	ErrNotFound = core.NewNotFoundError("Attendance session not found")

	// ErrOpenSessionExists is returned by repositories when the one-open-session-per-attendee
	// constraint is violated.
	ErrOpenSessionExists = errors.New("an open session already exists for this attendee")
)

type (
	Repository interface {
		// CreateSession returns ErrOpenSessionExists if (join code, attendee) already has an open session.
		CreateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		// GetOpenSession returns the most recent open session of an attendee, or ErrNotFound.
		GetOpenSession(ctx context.Context, joinCode, attendeeID string, exec ...core.DBExecutor) (Session, error)
		// CloseSession saves LeftAt and DurationSeconds of an open session.
		// Returns ErrNotFound if the session was closed in the meantime.
		CloseSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		// QuerySessions lists the sessions of a meeting by join time.
		QuerySessions(ctx context.Context, joinCode string, exec ...core.DBExecutor) ([]Session, error)
	}

	Service struct {
		db   core.DB
		repo Repository
		now  func() time.Time
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo, now: time.Now}
}

// Join records an attendee joining a meeting. Joining again while a session is open returns that
// session unchanged; the store's unique index settles concurrent joins.
func (svc *Service) Join(ctx context.Context, jr JoinRequest) (Session, error) {
	var s Session
	err := core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		s, err = svc.repo.GetOpenSession(ctx, jr.JoinCode, jr.AttendeeID, exec)
		if err == nil {
			return nil
		}
		if errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "finding open session")
		}

		now := svc.now().UTC()
		s, err = svc.repo.CreateSession(ctx, Session{
			JoinCode:          jr.JoinCode,
			ProviderMeetingID: core.NullString(jr.ProviderMeetingID),
			AttendeeID:        jr.AttendeeID,
			ExternalUserID:    core.NullString(jr.ExternalUserID),
			Role:              jr.Role,
			JoinedAt:          now,
			CreatedAt:         now,
			UpdatedAt:         now,
		}, exec)
		return err
	})
	if err == nil {
		return s, nil
	}
	if errors.Cause(err) != ErrOpenSessionExists {
		return Session{}, errors.Wrap(err, "joining meeting")
	}

	// lost a concurrent join: the failed insert aborted the transaction, read the winner outside it
	if s, err = svc.repo.GetOpenSession(ctx, jr.JoinCode, jr.AttendeeID); err != nil {
		return Session{}, errors.Wrap(err, "finding concurrent session")
	}
	return s, nil
}

// Leave closes the most recent open session of an attendee.
// Leaving without an open session is a successful no-op.
func (svc *Service) Leave(ctx context.Context, lr LeaveRequest) (LeaveResult, error) {
	res := LeaveResult{OK: true}
	err := core.WithTransaction(ctx, svc.db, func(exec core.DBExecutor) error {
		s, err := svc.repo.GetOpenSession(ctx, lr.JoinCode, lr.AttendeeID, exec)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return nil
			}
			return err
		}

		s.close(svc.now())
		if s, err = svc.repo.CloseSession(ctx, s, exec); err != nil {
			if errors.Cause(err) == ErrNotFound {
				return nil
			}
			return err
		}
		res.Updated = true
		res.Session = &s
		return nil
	})
	if err != nil {
		return LeaveResult{}, errors.Wrap(err, "leaving meeting")
	}
	return res, nil
}

func (svc *Service) Query(ctx context.Context, joinCode string) ([]Session, error) {
	sessions, err := svc.repo.QuerySessions(ctx, core.CleanString(joinCode))
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	return sessions, nil
}
