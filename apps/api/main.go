package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/scheduleme/backend/apps/api/echo"
	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/backup"
	"github.com/scheduleme/backend/core/lesson"
	"github.com/scheduleme/backend/core/report"
	"github.com/scheduleme/backend/core/school"
	"github.com/scheduleme/backend/core/teacher"
	"github.com/scheduleme/backend/core/timetable"
	"github.com/scheduleme/backend/core/user"
	emailsvc "github.com/scheduleme/backend/services/email"
	logsvc "github.com/scheduleme/backend/services/logger"
	"github.com/scheduleme/backend/storage/cache"
	"github.com/scheduleme/backend/storage/database"
	sqlxrepos "github.com/scheduleme/backend/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up the timetable cache; data changes invalidate it
	ttCache, closeCache, err := newTimetableCache(context.Background(), conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up timetable cache: %v", err), err)
	}
	defer closeCache()
	listeners := []core.ChangeListener{ttCache}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(logger, conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}

	teacherRepo := sqlxrepos.NewTeacherRepository(db)
	schoolRepo := sqlxrepos.NewSchoolRepository(db)
	lessonRepo := sqlxrepos.NewLessonRepository(db)

	teacherSvc := teacher.NewService(teacherRepo, listeners...)
	schoolSvc := school.NewService(schoolRepo, listeners...)
	lessonSvc := lesson.NewService(db, lessonRepo, teacherSvc, schoolSvc, listeners...)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), teacherSvc, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	lesson.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	if _, err = usrSvc.EnsureDefaultAdmin(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("ensuring default admin: %v", err), err)
	}

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
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			UserSvc:      usrSvc,
			TeacherSvc:   teacherSvc,
			SchoolSvc:    schoolSvc,
			LessonSvc:    lessonSvc,
			TimetableSvc: timetable.NewService(lessonSvc, teacherSvc, schoolSvc, ttCache, logger, conf),
			ReportSvc:    report.NewService(lessonSvc, teacherSvc, schoolSvc, mailSvc),
			BackupSvc:    backup.NewService(db, teacherRepo, schoolRepo, lessonRepo, lessonSvc, validate, listeners...),
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

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
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

// timetableCache is a timetable.Cache that is invalidated by data changes.
type timetableCache interface {
	timetable.Cache
	core.ChangeListener
}

// newTimetableCache connects to redis when configured, and falls back to an in-process cache otherwise.
func newTimetableCache(ctx context.Context, conf *core.Config, logger core.Logger) (timetableCache, func(), error) {
	if conf.Redis.Address == "" {
		return cache.NewMemoryCache(), func() {}, nil
	}
	redisCache := cache.NewRedisCache(cache.NewRedisClient(conf), logger, conf)
	if err := redisCache.Ping(ctx); err != nil {
		_ = redisCache.Close()
		return nil, nil, err
	}
	return redisCache, func() { _ = redisCache.Close() }, nil
}
