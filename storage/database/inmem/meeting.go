package inmemdb

import (
	"context"
	"sort"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/meeting"
	"github.com/examsurveil/backend/core/user"
)

type meetingRepository struct {
	db *DB
}

var _ meeting.Repository = (*meetingRepository)(nil) // interface compliance check

func NewMeetingRepository(db *DB) *meetingRepository {
	return &meetingRepository{db: db}
}

func (repo *meetingRepository) CreateMeeting(_ context.Context, m meeting.ScheduledMeeting, _ ...core.DBExecutor) (meeting.ScheduledMeeting, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[m.CreatedByUserID]; !ok {
		return meeting.ScheduledMeeting{}, user.ErrNotFound
	}
	if repo.find(m.JoinCode) != nil {
		return meeting.ScheduledMeeting{}, meeting.ErrJoinCodeExists
	}
	m.ID = repo.db.nextPK()
	repo.db.meetings[m.ID] = &m
	return m, nil
}

// find must be called with the lock held.
func (repo *meetingRepository) find(joinCode string) *meeting.ScheduledMeeting {
	for _, m := range repo.db.meetings {
		if m.JoinCode == joinCode {
			return m
		}
	}
	return nil
}

func (repo *meetingRepository) GetMeetingByJoinCode(_ context.Context, joinCode string, _ ...core.DBExecutor) (meeting.ScheduledMeeting, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m := repo.find(joinCode); m != nil {
		return *m, nil
	}
	return meeting.ScheduledMeeting{}, meeting.ErrNotFound
}

// GetMeetingForUpdate takes no row lock: in-memory writes are serialized by the store lock.
func (repo *meetingRepository) GetMeetingForUpdate(ctx context.Context, joinCode string, exec ...core.DBExecutor) (meeting.ScheduledMeeting, error) {
	return repo.GetMeetingByJoinCode(ctx, joinCode, exec...)
}

func (repo *meetingRepository) QueryMeetingsByCreator(_ context.Context, userID int64, _ ...core.DBExecutor) ([]meeting.ScheduledMeeting, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	meetings := make([]meeting.ScheduledMeeting, 0)
	for _, m := range repo.db.meetings {
		if m.CreatedByUserID == userID {
			meetings = append(meetings, *m)
		}
	}
	sort.Slice(meetings, func(i, j int) bool {
		if meetings[i].CreatedAt.Equal(meetings[j].CreatedAt) {
			return meetings[i].ID > meetings[j].ID
		}
		return meetings[i].CreatedAt.After(meetings[j].CreatedAt)
	})
	return meetings, nil
}

func (repo *meetingRepository) UpdateMeeting(_ context.Context, m meeting.ScheduledMeeting, _ ...core.DBExecutor) (meeting.ScheduledMeeting, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.meetings[m.ID]
	if !ok {
		return meeting.ScheduledMeeting{}, meeting.ErrNotFound
	}
	// immutable columns
	m.JoinCode = orig.JoinCode
	m.CreatedByUserID = orig.CreatedByUserID
	m.CreatedAt = orig.CreatedAt
	repo.db.meetings[m.ID] = &m
	return m, nil
}

func (repo *meetingRepository) DeleteMeeting(_ context.Context, id int64, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.meetings[id]; !ok {
		return meeting.ErrNotFound
	}
	delete(repo.db.meetings, id)
	return nil
}
