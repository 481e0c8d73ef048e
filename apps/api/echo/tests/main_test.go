package tests

import (
	"os"
	"testing"

	"github.com/examsurveil/backend/apps/api/echo"
	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/attendance"
	"github.com/examsurveil/backend/core/chatlog"
	"github.com/examsurveil/backend/core/meeting"
	"github.com/examsurveil/backend/core/user"
	"github.com/examsurveil/backend/services/email"
	"github.com/examsurveil/backend/services/identity"
	"github.com/examsurveil/backend/storage/database/inmem"
	"github.com/examsurveil/backend/tests"
)

var (
	conf        *core.Config
	logger      core.Logger
	db          *inmemdb.DB
	app         *echoapi.Server
	usrRepo     user.Repository
	meetingRepo meeting.Repository
	provider    *testutil.FakeProvider
	directory   *identitysvc.LocalDirectory
)

func TestMain(m *testing.M) {
	conf = testutil.NewTestConfig()
	logger = testutil.NewLogger(conf)
	core.ParseEmailTemplates(logger, true /* strict */)
	db = inmemdb.NewDB()

	os.Exit(m.Run())
}

// setup resets the store and builds a fresh Server around a new provider and directory.
func setup(t *testing.T) {
	t.Helper()
	db.Reset()
	emailsvc.ResetSentMessages()

	usrRepo = inmemdb.NewUserRepository(db)
	meetingRepo = inmemdb.NewMeetingRepository(db)
	provider = testutil.NewFakeProvider()
	directory = identitysvc.NewLocalDirectory()
	validate, translator := testutil.NewValidator()

	app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Verifier:       echoapi.NewHMACVerifier(conf),
		UserSvc:        user.NewService(nil, usrRepo, directory, emailsvc.NewConsoleServiceMock(conf), conf),
		MeetingSvc:     meeting.NewService(nil, meetingRepo, provider, testutil.FakeRecordings{}, logger, conf),
		AttendanceSvc:  attendance.NewService(nil, inmemdb.NewAttendanceRepository(db)),
		ChatLogSvc:     chatlog.NewService(inmemdb.NewChatLogRepository(db)),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
}
