package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examsurveil/backend/core/meeting"
	"github.com/examsurveil/backend/core/user"
	"github.com/examsurveil/backend/tests"
)

func getMeeting(t *testing.T, joinCode string) meeting.ScheduledMeeting {
	t.Helper()
	m, err := meetingRepo.GetMeetingByJoinCode(context.Background(), joinCode)
	require.NoError(t, err)
	return m
}

func Test_meetingApi_create(t *testing.T) {
	setup(t)

	proctor := testutil.CreateUser(t, usrRepo, "proctor@test.io", user.RoleProctor)
	examinee := testutil.CreateUser(t, usrRepo, "student@test.io", user.RoleExaminee)

	runHTTPTests(t, []httpTest{
		{
			name:     "examinee",
			method:   http.MethodPost,
			path:     "/scheduled-meetings",
			body:     []byte(`{"title":"Algebra"}`),
			token:    getToken(t, examinee),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errProctorRequired),
		},
		{
			name:     "invalid region",
			method:   http.MethodPost,
			path:     "/scheduled-meetings",
			body:     []byte(`{"title":"Algebra","region":"moon"}`),
			token:    getToken(t, proctor),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"detail":{"region":"invalid region"}}`),
		},
		{
			name:     "end before start",
			method:   http.MethodPost,
			path:     "/scheduled-meetings",
			body:     []byte(`{"scheduled_start_at":"2026-01-10T10:00:00Z","scheduled_end_at":"2026-01-10T09:00:00Z"}`),
			token:    getToken(t, proctor),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"detail":{"scheduled_end_at":"scheduled_end_at must be after scheduled_start_at"}}`),
		},
	})

	t.Run("ok", func(t *testing.T) {
		body := []byte(`{"title":" Algebra ","scheduled_start_at":"2026-01-10T10:00:00+02:00","region":"eu-west-1"}`)
		rec := do(http.MethodPost, "/scheduled-meetings", getToken(t, proctor), body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var m meeting.ScheduledMeeting
		unmarshall(t, rec, &m)
		assert.True(t, strings.HasPrefix(m.JoinCode, "exam-"), m.JoinCode)
		assert.Equal(t, "Algebra", m.Title.String)
		assert.Equal(t, proctor.Email, m.TeacherName.String)
		assert.Equal(t, "eu-west-1", m.Region)
		assert.Equal(t, meeting.StatusScheduled, m.Status)
		assert.False(t, m.ProviderMeetingID.Valid)
		assert.True(t, m.ScheduledStartAt.Time.Equal(time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)))
		assert.False(t, m.ScheduledEndAt.Valid)

		stored := getMeeting(t, m.JoinCode)
		assert.Equal(t, proctor.ID, stored.CreatedByUserID)
	})
}

func Test_meetingApi_query(t *testing.T) {
	setup(t)

	now := time.Now()
	proctor := testutil.CreateUser(t, usrRepo, "proctor@test.io", user.RoleProctor)
	other := testutil.CreateUser(t, usrRepo, "other@test.io", user.RoleProctor)
	examinee := testutil.CreateUser(t, usrRepo, "student@test.io", user.RoleExaminee)
	m1 := testutil.CreateMeeting(t, meetingRepo, proctor, "exam-one", meeting.StatusScheduled, now)
	m2 := testutil.CreateMeeting(t, meetingRepo, proctor, "exam-two", meeting.StatusEnded, now.Add(time.Minute))
	testutil.CreateMeeting(t, meetingRepo, other, "exam-other", meeting.StatusScheduled)

	runHTTPTests(t, []httpTest{
		{
			name:     "proctor sees own meetings newest first",
			method:   http.MethodGet,
			path:     "/scheduled-meetings",
			token:    getToken(t, proctor),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, []meeting.ScheduledMeeting{m2, m1}),
		},
		{
			name:     "examinee sees nothing",
			method:   http.MethodGet,
			path:     "/scheduled-meetings",
			token:    getToken(t, examinee),
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
		{
			name:     "retrieve own",
			method:   http.MethodGet,
			path:     "/scheduled-meetings/exam-one",
			token:    getToken(t, proctor),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, m1),
		},
		{
			name:     "retrieve not owned",
			method:   http.MethodGet,
			path:     "/scheduled-meetings/exam-one",
			token:    getToken(t, other),
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"detail":"Not allowed"}`),
		},
		{
			name:     "retrieve unknown",
			method:   http.MethodGet,
			path:     "/scheduled-meetings/exam-nope",
			token:    getToken(t, proctor),
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"detail":"Scheduled meeting not found"}`),
		},
	})
}

func Test_meetingApi_lifecycle(t *testing.T) {
	setup(t)

	proctor := testutil.CreateUser(t, usrRepo, "proctor@test.io", user.RoleProctor)
	other := testutil.CreateUser(t, usrRepo, "other@test.io", user.RoleProctor)
	testutil.CreateMeeting(t, meetingRepo, proctor, "exam-life", meeting.StatusScheduled)
	token := getToken(t, proctor)

	t.Run("start not owned", func(t *testing.T) {
		rec := do(http.MethodPost, "/scheduled-meetings/exam-life/start", getToken(t, other))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, meeting.StatusScheduled, getMeeting(t, "exam-life").Status)
	})

	var providerID string
	t.Run("start", func(t *testing.T) {
		rec := do(http.MethodPost, "/scheduled-meetings/exam-life/start", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res meeting.StartResult
		unmarshall(t, rec, &res)
		assert.Equal(t, "exam-life", res.JoinCode)
		assert.Equal(t, "exam-life", res.Meeting.Meeting.ExternalMeetingId)
		require.NotEmpty(t, res.Meeting.Meeting.MeetingId)
		providerID = res.Meeting.Meeting.MeetingId

		m := getMeeting(t, "exam-life")
		assert.Equal(t, meeting.StatusStarted, m.Status)
		assert.Equal(t, providerID, m.ProviderMeetingID.String)
	})

	t.Run("start again reuses the provider meeting", func(t *testing.T) {
		rec := do(http.MethodPost, "/scheduled-meetings/exam-life/start", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res meeting.StartResult
		unmarshall(t, rec, &res)
		assert.Equal(t, providerID, res.Meeting.Meeting.MeetingId)
		assert.Len(t, provider.Created, 1)
	})

	t.Run("start after provider expiry", func(t *testing.T) {
		provider.Expire(providerID)
		rec := do(http.MethodPost, "/scheduled-meetings/exam-life/start", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res meeting.StartResult
		unmarshall(t, rec, &res)
		assert.NotEqual(t, providerID, res.Meeting.Meeting.MeetingId)
		providerID = res.Meeting.Meeting.MeetingId
		assert.Equal(t, providerID, getMeeting(t, "exam-life").ProviderMeetingID.String)
	})

	t.Run("end not owned", func(t *testing.T) {
		rec := do(http.MethodPost, "/scheduled-meetings/exam-life/end", getToken(t, other))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"detail":"Not allowed"}`, rec.Body.String())
		assert.Equal(t, meeting.StatusStarted, getMeeting(t, "exam-life").Status)
		assert.True(t, provider.Live(providerID))
	})

	t.Run("end", func(t *testing.T) {
		rec := do(http.MethodPost, "/scheduled-meetings/exam-life/end", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var m meeting.ScheduledMeeting
		unmarshall(t, rec, &m)
		assert.Equal(t, meeting.StatusEnded, m.Status)
		assert.False(t, provider.Live(providerID))
	})

	t.Run("end again is a no-op", func(t *testing.T) {
		rec := do(http.MethodPost, "/scheduled-meetings/exam-life/end", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, provider.Deleted, 1)
	})

	runHTTPTests(t, []httpTest{
		{
			name:     "start ended",
			method:   http.MethodPost,
			path:     "/scheduled-meetings/exam-life/start",
			token:    token,
			wantCode: http.StatusConflict,
			wantData: []byte(`{"detail":"Meeting already ended"}`),
		},
		{
			name:     "update ended",
			method:   http.MethodPatch,
			path:     "/scheduled-meetings/exam-life",
			body:     []byte(`{"title":"Too late"}`),
			token:    token,
			wantCode: http.StatusConflict,
			wantData: []byte(`{"detail":"Meeting already ended"}`),
		},
	})
	assert.Equal(t, meeting.StatusEnded, getMeeting(t, "exam-life").Status)
}

func Test_meetingApi_update(t *testing.T) {
	setup(t)

	proctor := testutil.CreateUser(t, usrRepo, "proctor@test.io", user.RoleProctor)
	other := testutil.CreateUser(t, usrRepo, "other@test.io", user.RoleProctor)
	testutil.CreateMeeting(t, meetingRepo, proctor, "exam-edit", meeting.StatusScheduled)
	token := getToken(t, proctor)

	runHTTPTests(t, []httpTest{
		{
			name:     "not owned",
			method:   http.MethodPatch,
			path:     "/scheduled-meetings/exam-edit",
			body:     []byte(`{"title":"Hijacked"}`),
			token:    getToken(t, other),
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"detail":"Not allowed"}`),
		},
		{
			name:     "examinee",
			method:   http.MethodPatch,
			path:     "/scheduled-meetings/exam-edit",
			body:     []byte(`{"title":"Hijacked"}`),
			token:    getToken(t, testutil.CreateUser(t, usrRepo, "student@test.io", user.RoleExaminee)),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errProctorRequired),
		},
	})
	assert.NotEqual(t, "Hijacked", getMeeting(t, "exam-edit").Title.String)

	rec := do(http.MethodPatch, "/scheduled-meetings/exam-edit", token,
		[]byte(`{"title":"Geometry","teacher_name":null,"scheduled_end_at":"2026-02-01T12:00:00Z"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var m meeting.ScheduledMeeting
	unmarshall(t, rec, &m)
	assert.Equal(t, "Geometry", m.Title.String)
	assert.False(t, m.TeacherName.Valid)
	assert.True(t, m.ScheduledEndAt.Time.Equal(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "exam-edit", m.JoinCode)

	// fields not sent are kept
	rec = do(http.MethodPatch, "/scheduled-meetings/exam-edit", token, []byte(`{"teacher_name":"Mr Smith"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshall(t, rec, &m)
	assert.Equal(t, "Geometry", m.Title.String)
	assert.Equal(t, "Mr Smith", m.TeacherName.String)

	rec = do(http.MethodPatch, "/scheduled-meetings/exam-edit", token, []byte(`{"scheduled_start_at":"2026-02-02T12:00:00Z"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	t.Run("multi-byte title", func(t *testing.T) {
		title := strings.Repeat("試", 100)
		rec := do(http.MethodPost, "/scheduled-meetings", token, marshallObj(t, map[string]string{"title": title}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(http.MethodPatch, "/scheduled-meetings/exam-edit", token, marshallObj(t, map[string]string{"title": title}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshall(t, rec, &m)
		assert.Equal(t, title, m.Title.String)

		rec = do(http.MethodPatch, "/scheduled-meetings/exam-edit", token, marshallObj(t, map[string]string{"title": strings.Repeat("試", 256)}))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})
}

func Test_meetingApi_destroy(t *testing.T) {
	setup(t)

	proctor := testutil.CreateUser(t, usrRepo, "proctor@test.io", user.RoleProctor)
	other := testutil.CreateUser(t, usrRepo, "other@test.io", user.RoleProctor)
	testutil.CreateMeeting(t, meetingRepo, proctor, "exam-gone", meeting.StatusStarted)

	runHTTPTests(t, []httpTest{
		{
			name:     "not owned",
			method:   http.MethodDelete,
			path:     "/scheduled-meetings/exam-gone",
			token:    getToken(t, other),
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"detail":"Not allowed"}`),
		},
		{
			name:     "ok",
			method:   http.MethodDelete,
			path:     "/scheduled-meetings/exam-gone",
			token:    getToken(t, proctor),
			wantCode: http.StatusOK,
			wantData: []byte(`{"ok":true}`),
		},
		{
			name:     "already deleted",
			method:   http.MethodDelete,
			path:     "/scheduled-meetings/exam-gone",
			token:    getToken(t, proctor),
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"detail":"Scheduled meeting not found"}`),
		},
	})
}

func Test_meetingApi_presignRecording(t *testing.T) {
	setup(t)

	proctor := testutil.CreateUser(t, usrRepo, "proctor@test.io", user.RoleProctor)
	testutil.CreateMeeting(t, meetingRepo, proctor, "exam-rec", meeting.StatusStarted)

	rec := do(http.MethodPost, "/scheduled-meetings/exam-rec/recordings/presign", getToken(t, proctor),
		[]byte(`{"file_name":"../cam 1.webm"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var up meeting.PresignedUpload
	unmarshall(t, rec, &up)
	assert.True(t, strings.HasPrefix(up.Key, "recordings/exam-rec/"), up.Key)
	assert.True(t, strings.HasSuffix(up.Key, "-cam_1.webm"), up.Key)
	assert.Equal(t, "https://recordings.test.io/"+up.Key, up.URL)
	assert.Equal(t, 900, up.ExpiresIn)

	rec = do(http.MethodPost, "/scheduled-meetings/exam-rec/recordings/presign", getToken(t, proctor), []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func Test_meetingApi_join(t *testing.T) {
	setup(t)

	proctor := testutil.CreateUser(t, usrRepo, "proctor@test.io", user.RoleProctor)
	examinee := testutil.CreateUser(t, usrRepo, "student@test.io", user.RoleExaminee)
	testutil.CreateMeeting(t, meetingRepo, proctor, "exam-join", meeting.StatusScheduled)
	body := []byte(`{"external_meeting_id":"exam-join"}`)

	rec := do(http.MethodPost, "/meetings", getToken(t, examinee), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"detail":"Meeting not started"}`, rec.Body.String())

	// the owner's join starts the meeting
	rec = do(http.MethodPost, "/meetings", getToken(t, proctor), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var owned meeting.MeetingResponse
	unmarshall(t, rec, &owned)
	assert.Equal(t, meeting.StatusStarted, getMeeting(t, "exam-join").Status)

	rec = do(http.MethodPost, "/meetings", getToken(t, examinee), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var joined meeting.MeetingResponse
	unmarshall(t, rec, &joined)
	assert.Equal(t, owned.Meeting.MeetingId, joined.Meeting.MeetingId)

	t.Run("attendee", func(t *testing.T) {
		rec := do(http.MethodPost, "/meetings/"+joined.Meeting.MeetingId+"/attendees", getToken(t, examinee),
			[]byte(`{"external_user_id":"student@test.io"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res meeting.AttendeeResponse
		unmarshall(t, rec, &res)
		assert.Equal(t, "student@test.io", res.Attendee.ExternalUserId)
		assert.NotEmpty(t, res.Attendee.JoinToken)
	})

	t.Run("attendee of unknown meeting", func(t *testing.T) {
		rec := do(http.MethodPost, "/meetings/nope/attendees", getToken(t, examinee), []byte(`{"external_user_id":"x"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"detail":"Meeting not found"}`, rec.Body.String())
	})
}

func Test_meetingApi_joinUnscheduled(t *testing.T) {
	setup(t)

	examinee := testutil.CreateUser(t, usrRepo, "student@test.io", user.RoleExaminee)
	token := getToken(t, examinee)
	body := []byte(`{"external_meeting_id":"room-42"}`)

	rec := do(http.MethodPost, "/meetings", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first meeting.MeetingResponse
	unmarshall(t, rec, &first)
	assert.Equal(t, "room-42", first.Meeting.ExternalMeetingId)
	assert.Equal(t, "us-east-1", first.Meeting.MediaRegion)

	rec = do(http.MethodPost, "/meetings", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second meeting.MeetingResponse
	unmarshall(t, rec, &second)
	assert.Equal(t, first.Meeting.MeetingId, second.Meeting.MeetingId)
	assert.Len(t, provider.Created, 1)

	// an expired cached meeting is replaced
	provider.Expire(first.Meeting.MeetingId)
	rec = do(http.MethodPost, "/meetings", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var third meeting.MeetingResponse
	unmarshall(t, rec, &third)
	assert.NotEqual(t, first.Meeting.MeetingId, third.Meeting.MeetingId)
}

func Test_meetingApi_guestJoin(t *testing.T) {
	setup(t)

	proctor := testutil.CreateUser(t, usrRepo, "proctor@test.io", user.RoleProctor)
	testutil.CreateMeeting(t, meetingRepo, proctor, "exam-guest", meeting.StatusScheduled)

	runHTTPTests(t, []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/guest/join",
			body:     []byte(`{"external_meeting_id":"exam-guest"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"detail":{"external_user_id":"this field cannot be blank"}}`),
		},
		{
			name:     "not started",
			method:   http.MethodPost,
			path:     "/guest/join",
			body:     []byte(`{"external_meeting_id":"exam-guest","external_user_id":"guest-1"}`),
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"detail":"Meeting not started"}`),
		},
		{
			name:     "unknown unscheduled meeting",
			method:   http.MethodPost,
			path:     "/guest/join",
			body:     []byte(`{"external_meeting_id":"room-1","external_user_id":"guest-1"}`),
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"detail":"Meeting not found"}`),
		},
	})
	assert.Empty(t, provider.Created)

	rec := do(http.MethodPost, "/scheduled-meetings/exam-guest/start", getToken(t, proctor))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(http.MethodPost, "/guest/join", "", []byte(`{"external_meeting_id":"exam-guest","external_user_id":"guest-1"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res meeting.GuestJoinResponse
	unmarshall(t, rec, &res)
	assert.Equal(t, getMeeting(t, "exam-guest").ProviderMeetingID.String, res.Meeting.MeetingId)
	assert.Equal(t, "guest-1", res.Attendee.ExternalUserId)
	assert.Len(t, provider.Created, 1)
}
