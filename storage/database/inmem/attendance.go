package inmemdb

import (
	"context"
	"sort"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// openSession must be called with the lock held.
func (repo *attendanceRepository) openSession(joinCode, attendeeID string) *attendance.Session {
	var open *attendance.Session
	for _, s := range repo.db.sessions {
		if s.JoinCode == joinCode && s.AttendeeID == attendeeID && s.IsOpen() {
			if open == nil || s.JoinedAt.After(open.JoinedAt) {
				open = s
			}
		}
	}
	return open
}

func (repo *attendanceRepository) CreateSession(_ context.Context, s attendance.Session, _ ...core.DBExecutor) (attendance.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if s.IsOpen() && repo.openSession(s.JoinCode, s.AttendeeID) != nil {
		return attendance.Session{}, attendance.ErrOpenSessionExists
	}
	s.ID = repo.db.nextPK()
	repo.db.sessions[s.ID] = &s
	return s, nil
}

func (repo *attendanceRepository) GetOpenSession(_ context.Context, joinCode, attendeeID string, _ ...core.DBExecutor) (attendance.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s := repo.openSession(joinCode, attendeeID); s != nil {
		return *s, nil
	}
	return attendance.Session{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) CloseSession(_ context.Context, s attendance.Session, _ ...core.DBExecutor) (attendance.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.sessions[s.ID]
	if !ok || !orig.IsOpen() {
		return attendance.Session{}, attendance.ErrNotFound
	}
	closed := *orig
	closed.LeftAt = s.LeftAt
	closed.DurationSeconds = s.DurationSeconds
	closed.UpdatedAt = s.UpdatedAt
	repo.db.sessions[s.ID] = &closed
	return closed, nil
}

func (repo *attendanceRepository) QuerySessions(_ context.Context, joinCode string, _ ...core.DBExecutor) ([]attendance.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sessions := make([]attendance.Session, 0)
	for _, s := range repo.db.sessions {
		if s.JoinCode == joinCode {
			sessions = append(sessions, *s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].JoinedAt.Equal(sessions[j].JoinedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].JoinedAt.Before(sessions[j].JoinedAt)
	})
	return sessions, nil
}
