package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examsurveil/backend/core/attendance"
	"github.com/examsurveil/backend/core/user"
	"github.com/examsurveil/backend/tests"
)

func Test_attendanceApi(t *testing.T) {
	setup(t)

	proctor := testutil.CreateUser(t, usrRepo, "proctor@test.io", user.RoleProctor)
	examinee := testutil.CreateUser(t, usrRepo, "student@test.io", user.RoleExaminee)
	token := getToken(t, examinee)

	runHTTPTests(t, []httpTest{
		{
			name:     "join without attendee",
			method:   http.MethodPost,
			path:     "/attendance/join",
			body:     []byte(`{"join_code":"exam-att"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"detail":{"attendee_id":"this field cannot be blank"}}`),
		},
		{
			name:     "leave without session",
			method:   http.MethodPost,
			path:     "/attendance/leave",
			body:     []byte(`{"join_code":"exam-att","attendee_id":"att-1"}`),
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"ok":true,"updated":false}`),
		},
	})

	var first attendance.Session
	t.Run("join", func(t *testing.T) {
		rec := do(http.MethodPost, "/attendance/join", token,
			[]byte(`{"join_code":"exam-att","chime_meeting_id":"meeting-1","attendee_id":"att-1","external_user_id":"student@test.io"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		unmarshall(t, rec, &first)
		assert.Equal(t, "meeting-1", first.ProviderMeetingID.String)
		assert.Equal(t, user.RoleExaminee, first.Role)
		assert.True(t, first.IsOpen())
	})

	t.Run("join again returns the open session", func(t *testing.T) {
		rec := do(http.MethodPost, "/attendance/join", token, []byte(`{"join_code":"exam-att","attendee_id":"att-1"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var s attendance.Session
		unmarshall(t, rec, &s)
		assert.Equal(t, first.ID, s.ID)
	})

	t.Run("leave", func(t *testing.T) {
		rec := do(http.MethodPost, "/attendance/leave", token, []byte(`{"join_code":"exam-att","attendee_id":"att-1"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res attendance.LeaveResult
		unmarshall(t, rec, &res)
		assert.True(t, res.OK)
		assert.True(t, res.Updated)
		require.NotNil(t, res.Session)
		assert.Equal(t, first.ID, res.ID)
		assert.True(t, res.LeftAt.Valid)
		assert.GreaterOrEqual(t, res.DurationSeconds.Int, 0)
	})

	t.Run("leave again", func(t *testing.T) {
		rec := do(http.MethodPost, "/attendance/leave", token, []byte(`{"join_code":"exam-att","attendee_id":"att-1"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"ok":true,"updated":false}`, rec.Body.String())
	})

	t.Run("rejoin opens a new session", func(t *testing.T) {
		rec := do(http.MethodPost, "/attendance/join", token, []byte(`{"join_code":"exam-att","attendee_id":"att-1"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var s attendance.Session
		unmarshall(t, rec, &s)
		assert.NotEqual(t, first.ID, s.ID)
	})

	t.Run("join and leave without credentials", func(t *testing.T) {
		rec := do(http.MethodPost, "/attendance/join", "", []byte(`{"join_code":"exam-beacon","attendee_id":"att-9"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var joined attendance.Session
		unmarshall(t, rec, &joined)

		rec = do(http.MethodPost, "/attendance/leave", "", []byte(`{"join_code":"exam-beacon","attendee_id":"att-9"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res attendance.LeaveResult
		unmarshall(t, rec, &res)
		assert.True(t, res.Updated)
		require.NotNil(t, res.Session)
		assert.Equal(t, joined.ID, res.ID)
		assert.True(t, res.LeftAt.Valid)
		assert.True(t, res.DurationSeconds.Valid)
	})

	t.Run("query", func(t *testing.T) {
		rec := do(http.MethodGet, "/attendance/exam-att", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = do(http.MethodGet, "/attendance/exam-att", token)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = do(http.MethodGet, "/attendance/exam-att", getToken(t, proctor))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sessions []attendance.Session
		unmarshall(t, rec, &sessions)
		require.Len(t, sessions, 2)
		assert.Equal(t, first.ID, sessions[0].ID)
		assert.False(t, sessions[0].IsOpen())
		assert.True(t, sessions[1].IsOpen())

		rec = do(http.MethodGet, "/attendance/exam-none", getToken(t, proctor))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}
