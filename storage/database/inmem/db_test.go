package inmemdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/attendance"
	"github.com/examsurveil/backend/core/chatlog"
	"github.com/examsurveil/backend/core/meeting"
	"github.com/examsurveil/backend/core/user"
	inmemdb "github.com/examsurveil/backend/storage/database/inmem"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewUserRepository(inmemdb.NewDB())

	bob, err := repo.CreateUser(ctx, user.User{Email: "bob@example.com", Role: user.RoleProctor, CreatedAt: t0})
	require.NoError(t, err)
	alice, err := repo.CreateUser(ctx, user.User{Email: "alice@example.com", Role: user.RoleExaminee, CreatedAt: t0.Add(time.Hour)})
	require.NoError(t, err)
	assert.NotEqual(t, bob.ID, alice.ID)

	_, err = repo.CreateUser(ctx, user.User{Email: "bob@example.com", Role: user.RoleExaminee})
	assert.Equal(t, user.ErrEmailExists, err)

	got, err := repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	_, err = repo.GetUserByID(ctx, 999)
	assert.Equal(t, user.ErrNotFound, err)

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "default", want: []string{"bob@example.com", "alice@example.com"}},
		{
			name:     "email asc",
			ordering: []core.DBOrdering{{Field: "email", Ascending: true}},
			want:     []string{"alice@example.com", "bob@example.com"},
		},
		{
			name:     "created_at desc",
			ordering: []core.DBOrdering{{Field: "created_at"}},
			want:     []string{"alice@example.com", "bob@example.com"},
		},
		{
			name:     "unknown field ignored",
			ordering: []core.DBOrdering{{Field: "password"}},
			want:     []string{"bob@example.com", "alice@example.com"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users, err := repo.QueryUsers(ctx, tc.ordering)
			require.NoError(t, err)
			emails := make([]string, 0, len(users))
			for _, u := range users {
				emails = append(emails, u.Email)
			}
			assert.Equal(t, tc.want, emails)
		})
	}

	alice.Email = "bob@example.com"
	_, err = repo.UpdateUser(ctx, alice)
	assert.Equal(t, user.ErrEmailExists, err)

	assert.NoError(t, repo.DeleteUser(ctx, alice.ID))
	assert.Equal(t, user.ErrNotFound, repo.DeleteUser(ctx, alice.ID))
}

func TestMeetingRepository(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.NewDB()
	users := inmemdb.NewUserRepository(db)
	repo := inmemdb.NewMeetingRepository(db)

	owner, err := users.CreateUser(ctx, user.User{Email: "proctor@example.com", Role: user.RoleProctor})
	require.NoError(t, err)

	_, err = repo.CreateMeeting(ctx, meeting.ScheduledMeeting{JoinCode: "exam-orphan", CreatedByUserID: 999})
	assert.Equal(t, user.ErrNotFound, err)

	first, err := repo.CreateMeeting(ctx, meeting.ScheduledMeeting{
		JoinCode: "exam-0000000001", CreatedByUserID: owner.ID, Status: meeting.StatusScheduled, CreatedAt: t0,
	})
	require.NoError(t, err)
	second, err := repo.CreateMeeting(ctx, meeting.ScheduledMeeting{
		JoinCode: "exam-0000000002", CreatedByUserID: owner.ID, Status: meeting.StatusScheduled, CreatedAt: t0.Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = repo.CreateMeeting(ctx, meeting.ScheduledMeeting{JoinCode: first.JoinCode, CreatedByUserID: owner.ID})
	assert.Equal(t, meeting.ErrJoinCodeExists, err)

	has, err := users.HasScheduledMeetings(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, has)

	list, err := repo.QueryMeetingsByCreator(ctx, owner.ID)
	require.NoError(t, err)
	if assert.Len(t, list, 2) {
		assert.Equal(t, second.ID, list[0].ID, "newest first")
		assert.Equal(t, first.ID, list[1].ID)
	}

	upd := first
	upd.JoinCode = "exam-hijacked"
	upd.Status = meeting.StatusStarted
	upd.ProviderMeetingID = null.StringFrom("provider-1")
	saved, err := repo.UpdateMeeting(ctx, upd)
	require.NoError(t, err)
	assert.Equal(t, first.JoinCode, saved.JoinCode, "join code is immutable")
	assert.Equal(t, meeting.StatusStarted, saved.Status)

	got, err := repo.GetMeetingForUpdate(ctx, first.JoinCode)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	require.NoError(t, repo.DeleteMeeting(ctx, first.ID))
	_, err = repo.GetMeetingByJoinCode(ctx, first.JoinCode)
	assert.Equal(t, meeting.ErrNotFound, err)
	assert.Equal(t, meeting.ErrNotFound, repo.DeleteMeeting(ctx, first.ID))
}

func TestAttendanceRepository(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewAttendanceRepository(inmemdb.NewDB())

	open, err := repo.CreateSession(ctx, attendance.Session{JoinCode: "exam-1", AttendeeID: "att-1", JoinedAt: t0})
	require.NoError(t, err)

	_, err = repo.CreateSession(ctx, attendance.Session{JoinCode: "exam-1", AttendeeID: "att-1", JoinedAt: t0.Add(time.Second)})
	assert.Equal(t, attendance.ErrOpenSessionExists, err)

	// same attendee in another meeting
	_, err = repo.CreateSession(ctx, attendance.Session{JoinCode: "exam-2", AttendeeID: "att-1", JoinedAt: t0})
	assert.NoError(t, err)

	got, err := repo.GetOpenSession(ctx, "exam-1", "att-1")
	require.NoError(t, err)
	assert.Equal(t, open.ID, got.ID)

	leftAt := t0.Add(90 * time.Second)
	closing := got
	closing.LeftAt = null.TimeFrom(leftAt)
	closing.DurationSeconds = null.IntFrom(90)
	closed, err := repo.CloseSession(ctx, closing)
	require.NoError(t, err)
	assert.Equal(t, leftAt, closed.LeftAt.Time)
	assert.Equal(t, 90, closed.DurationSeconds.Int)

	_, err = repo.CloseSession(ctx, closing)
	assert.Equal(t, attendance.ErrNotFound, err, "already closed")

	_, err = repo.GetOpenSession(ctx, "exam-1", "att-1")
	assert.Equal(t, attendance.ErrNotFound, err)

	rejoined, err := repo.CreateSession(ctx, attendance.Session{JoinCode: "exam-1", AttendeeID: "att-1", JoinedAt: t0.Add(time.Hour)})
	require.NoError(t, err)

	sessions, err := repo.QuerySessions(ctx, "exam-1")
	require.NoError(t, err)
	if assert.Len(t, sessions, 2) {
		assert.Equal(t, open.ID, sessions[0].ID)
		assert.Equal(t, rejoined.ID, sessions[1].ID)
	}
}

func TestChatLogRepository(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewChatLogRepository(inmemdb.NewDB())

	create := func(messageID string, sentAt null.Time, createdAt time.Time) chatlog.ChatLog {
		c, err := repo.CreateChatLog(ctx, chatlog.ChatLog{
			JoinCode: "exam-1", MessageID: messageID, SentAt: sentAt, Text: messageID, CreatedAt: createdAt,
		})
		require.NoError(t, err)
		return c
	}
	untimed := create("untimed", null.Time{}, t0)
	late := create("late", null.TimeFrom(t0.Add(time.Minute)), t0)
	early := create("early", null.TimeFrom(t0), t0.Add(time.Hour))

	_, err := repo.CreateChatLog(ctx, chatlog.ChatLog{JoinCode: "exam-1", MessageID: "late", Text: "again"})
	assert.Equal(t, chatlog.ErrMessageExists, err)

	// same message ID in another meeting
	_, err = repo.CreateChatLog(ctx, chatlog.ChatLog{JoinCode: "exam-2", MessageID: "late", Text: "other"})
	assert.NoError(t, err)

	got, err := repo.GetChatLog(ctx, "exam-1", "late")
	require.NoError(t, err)
	assert.Equal(t, late, got)

	_, err = repo.GetChatLog(ctx, "exam-1", "missing")
	assert.Equal(t, chatlog.ErrNotFound, err)

	tests := []struct {
		name string
		page chatlog.Page
		want []int64
	}{
		{name: "all", page: chatlog.NewPage(), want: []int64{early.ID, late.ID, untimed.ID}},
		{name: "limit", page: chatlog.Page{Limit: 2}, want: []int64{early.ID, late.ID}},
		{name: "offset", page: chatlog.Page{Limit: 2, Offset: 2}, want: []int64{untimed.ID}},
		{name: "past end", page: chatlog.Page{Limit: 2, Offset: 10}, want: []int64{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logs, err := repo.QueryChatLogs(ctx, "exam-1", tc.page)
			require.NoError(t, err)
			ids := make([]int64, 0, len(logs))
			for _, c := range logs {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}
