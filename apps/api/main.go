package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/examsurveil/backend/apps/api/echo"
	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/attendance"
	"github.com/examsurveil/backend/core/chatlog"
	"github.com/examsurveil/backend/core/meeting"
	"github.com/examsurveil/backend/core/user"
	conferencesvc "github.com/examsurveil/backend/services/conferencing"
	emailsvc "github.com/examsurveil/backend/services/email"
	identitysvc "github.com/examsurveil/backend/services/identity"
	logsvc "github.com/examsurveil/backend/services/logger"
	storagesvc "github.com/examsurveil/backend/services/storage"
	"github.com/examsurveil/backend/storage/database"
	inmemdb "github.com/examsurveil/backend/storage/database/inmem"
	sqlxrepos "github.com/examsurveil/backend/storage/database/sqlx"
)

type repositories struct {
	db         core.DB // nil with in-memory storage
	users      user.Repository
	meetings   meeting.Repository
	attendance attendance.Repository
	chatLogs   chatlog.Repository
	close      func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up AWS clients
	awsCfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(conf.AWS.Region))
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading AWS config: %v", err), err)
	}

	var (
		directory user.Directory
		verifier  echoapi.TokenVerifier
	)
	if conf.AWS.CognitoEnabled() {
		cognitoCfg := awsCfg.Copy()
		cognitoCfg.Region = conf.AWS.CognitoIdentityRegion()
		directory = identitysvc.NewCognitoDirectory(cognitoCfg, conf.AWS.CognitoUserPoolID)
		jwksVerifier, err := identitysvc.NewJWKSVerifier(
			context.Background(), cognitoCfg.Region, conf.AWS.CognitoUserPoolID, conf.AWS.CognitoAppClientID, logger,
		)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up token verifier: %v", err), err)
		}
		defer jwksVerifier.Close()
		verifier = jwksVerifier
	} else {
		logger.Warn("Cognito is not configured: accepting locally signed tokens")
		directory = identitysvc.NewLocalDirectory()
		verifier = echoapi.NewHMACVerifier(conf)
	}

	var recordings meeting.RecordingStorage
	if conf.AWS.RecordingsBucket != "" {
		recordings = storagesvc.NewS3Recordings(awsCfg, conf.AWS.RecordingsBucket, conf.AWS.PresignExpiry)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(repos.db, repos.users, directory, mailSvc, conf)
	meetingSvc := meeting.NewService(
		repos.db,
		repos.meetings,
		conferencesvc.NewChimeProvider(awsCfg),
		recordings,
		logger,
		conf,
	)
	attendanceSvc := attendance.NewService(repos.db, repos.attendance)
	chatLogSvc := chatlog.NewService(repos.chatLogs)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger, conf.Debug)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Verifier:      verifier,
			UserSvc:       usrSvc,
			MeetingSvc:    meetingSvc,
			AttendanceSvc: attendanceSvc,
			ChatLogSvc:    chatLogSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpRepositories(conf *core.Config) (*repositories, error) {
	if conf.Database.InMemory {
		mem := inmemdb.NewDB()
		return &repositories{
			users:      inmemdb.NewUserRepository(mem),
			meetings:   inmemdb.NewMeetingRepository(mem),
			attendance: inmemdb.NewAttendanceRepository(mem),
			chatLogs:   inmemdb.NewChatLogRepository(mem),
			close:      func() error { return nil },
		}, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return nil, err
	}
	return &repositories{
		db:         db,
		users:      sqlxrepos.NewUserRepository(db),
		meetings:   sqlxrepos.NewMeetingRepository(db),
		attendance: sqlxrepos.NewAttendanceRepository(db),
		chatLogs:   sqlxrepos.NewChatLogRepository(db),
		close:      db.Close,
	}, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
