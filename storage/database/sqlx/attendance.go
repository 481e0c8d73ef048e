package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/attendance"
)

const sessionColumns = `id, join_code, provider_meeting_id, attendee_id, external_user_id, role, joined_at, left_at,
	duration_seconds, created_at, updated_at`

type attendanceRepository struct {
	baseRepository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{baseRepository{exec: exec}}
}

// CreateSession relies on meeting_attendance_sessions_open_uidx for the one open session rule.
func (repo attendanceRepository) CreateSession(ctx context.Context, s attendance.Session, exec ...core.DBExecutor) (attendance.Session, error) {
	q := `INSERT INTO meeting_attendance_sessions (join_code, provider_meeting_id, attendee_id, external_user_id, role,
			joined_at, left_at, duration_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING ` + sessionColumns

	var created attendance.Session
	err := repo.getExec(exec).QueryRowxContext(
		ctx, q,
		s.JoinCode, s.ProviderMeetingID, s.AttendeeID, s.ExternalUserID, s.Role,
		s.JoinedAt.UTC(), s.LeftAt, s.DurationSeconds, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	).StructScan(&created)
	if err != nil {
		return attendance.Session{}, trapUniqueErr(err, attendance.ErrOpenSessionExists, "inserting attendance session")
	}
	return created, nil
}

func (repo attendanceRepository) GetOpenSession(ctx context.Context, joinCode, attendeeID string, exec ...core.DBExecutor) (attendance.Session, error) {
	var s attendance.Session
	q := `SELECT ` + sessionColumns + ` FROM meeting_attendance_sessions
		WHERE join_code = $1 AND attendee_id = $2 AND left_at IS NULL
		ORDER BY joined_at DESC, id DESC LIMIT 1`
	if err := repo.getExec(exec).GetContext(ctx, &s, q, joinCode, attendeeID); err != nil {
		return attendance.Session{}, trapNoRowsErr(err, attendance.ErrNotFound, "selecting open attendance session")
	}
	return s, nil
}

func (repo attendanceRepository) CloseSession(ctx context.Context, s attendance.Session, exec ...core.DBExecutor) (attendance.Session, error) {
	q := `UPDATE meeting_attendance_sessions SET left_at = $2, duration_seconds = $3, updated_at = $4
		WHERE id = $1 AND left_at IS NULL RETURNING ` + sessionColumns

	var closed attendance.Session
	err := repo.getExec(exec).QueryRowxContext(ctx, q, s.ID, s.LeftAt, s.DurationSeconds, s.UpdatedAt.UTC()).StructScan(&closed)
	if err != nil {
		return attendance.Session{}, trapNoRowsErr(err, attendance.ErrNotFound, "closing attendance session")
	}
	return closed, nil
}

func (repo attendanceRepository) QuerySessions(ctx context.Context, joinCode string, exec ...core.DBExecutor) ([]attendance.Session, error) {
	sessions := make([]attendance.Session, 0)
	q := `SELECT ` + sessionColumns + ` FROM meeting_attendance_sessions WHERE join_code = $1 ORDER BY joined_at ASC, id ASC`
	if err := repo.getExec(exec).SelectContext(ctx, &sessions, q, joinCode); err != nil {
		return nil, errors.Wrap(err, "selecting attendance sessions")
	}
	return sessions, nil
}
