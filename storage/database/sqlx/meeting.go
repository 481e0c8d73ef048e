package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/meeting"
)

const meetingColumns = `id, join_code, title, teacher_name, created_by_user_id, scheduled_start_at, scheduled_end_at,
	region, provider_meeting_id, status, created_at, updated_at`

type meetingRepository struct {
	baseRepository
}

var _ meeting.Repository = (*meetingRepository)(nil) // interface compliance check

func NewMeetingRepository(exec core.DBExecutor) *meetingRepository {
	return &meetingRepository{baseRepository{exec: exec}}
}

func (repo meetingRepository) CreateMeeting(ctx context.Context, m meeting.ScheduledMeeting, exec ...core.DBExecutor) (meeting.ScheduledMeeting, error) {
	q := `INSERT INTO scheduled_meetings (join_code, title, teacher_name, created_by_user_id, scheduled_start_at,
			scheduled_end_at, region, provider_meeting_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING ` + meetingColumns

	var created meeting.ScheduledMeeting
	err := repo.getExec(exec).QueryRowxContext(
		ctx, q,
		m.JoinCode, m.Title, m.TeacherName, m.CreatedByUserID, m.ScheduledStartAt, m.ScheduledEndAt,
		m.Region, m.ProviderMeetingID, m.Status, m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	).StructScan(&created)
	if err != nil {
		return meeting.ScheduledMeeting{}, trapUniqueErr(err, meeting.ErrJoinCodeExists, "inserting scheduled meeting")
	}
	return created, nil
}

func (repo meetingRepository) getByJoinCode(ctx context.Context, joinCode, suffix string, exec []core.DBExecutor) (meeting.ScheduledMeeting, error) {
	var m meeting.ScheduledMeeting
	q := `SELECT ` + meetingColumns + ` FROM scheduled_meetings WHERE join_code = $1` + suffix
	if err := repo.getExec(exec).GetContext(ctx, &m, q, joinCode); err != nil {
		return meeting.ScheduledMeeting{}, trapNoRowsErr(err, meeting.ErrNotFound, "selecting scheduled meeting")
	}
	return m, nil
}

func (repo meetingRepository) GetMeetingByJoinCode(ctx context.Context, joinCode string, exec ...core.DBExecutor) (meeting.ScheduledMeeting, error) {
	return repo.getByJoinCode(ctx, joinCode, "", exec)
}

func (repo meetingRepository) GetMeetingForUpdate(ctx context.Context, joinCode string, exec ...core.DBExecutor) (meeting.ScheduledMeeting, error) {
	return repo.getByJoinCode(ctx, joinCode, " FOR UPDATE", exec)
}

func (repo meetingRepository) QueryMeetingsByCreator(ctx context.Context, userID int64, exec ...core.DBExecutor) ([]meeting.ScheduledMeeting, error) {
	meetings := make([]meeting.ScheduledMeeting, 0)
	q := `SELECT ` + meetingColumns + ` FROM scheduled_meetings WHERE created_by_user_id = $1
		ORDER BY created_at DESC, id DESC`
	if err := repo.getExec(exec).SelectContext(ctx, &meetings, q, userID); err != nil {
		return nil, errors.Wrap(err, "selecting scheduled meetings")
	}
	return meetings, nil
}

func (repo meetingRepository) UpdateMeeting(ctx context.Context, m meeting.ScheduledMeeting, exec ...core.DBExecutor) (meeting.ScheduledMeeting, error) {
	q := `UPDATE scheduled_meetings SET title = $2, teacher_name = $3, scheduled_start_at = $4, scheduled_end_at = $5,
			region = $6, provider_meeting_id = $7, status = $8, updated_at = $9
		WHERE id = $1 RETURNING ` + meetingColumns

	var updated meeting.ScheduledMeeting
	err := repo.getExec(exec).QueryRowxContext(
		ctx, q,
		m.ID, m.Title, m.TeacherName, m.ScheduledStartAt, m.ScheduledEndAt,
		m.Region, m.ProviderMeetingID, m.Status, m.UpdatedAt.UTC(),
	).StructScan(&updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return meeting.ScheduledMeeting{}, meeting.ErrNotFound
		}
		return meeting.ScheduledMeeting{}, errors.Wrap(err, "updating scheduled meeting")
	}
	return updated, nil
}

func (repo meetingRepository) DeleteMeeting(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM scheduled_meetings WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting scheduled meeting")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return meeting.ErrNotFound
	}
	return nil
}
