package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/scheduleme/backend/apps/api/echo"
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
	sqlxrepos "github.com/scheduleme/backend/storage/database/sqlx"
	"github.com/scheduleme/backend/tests"
)

// frozen "now" of every test server: Wednesday, 2024-03-13 10:30
var testNow = time.Date(2024, time.March, 13, 10, 30, 0, 0, time.UTC)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	conf    *core.Config
	server  *Server
	mailSvc *emailsvc.ConsoleServiceMock
	cache   *cache.MemoryCache

	usrRepo     user.Repository
	teacherRepo teacher.Repository
	schoolRepo  school.Repository
	lessonRepo  lesson.Repository
}

func setup(t *testing.T) *testEnv {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	// set up DB & repos
	db := testutil.PrepareDB(t)
	env := &testEnv{
		conf:        conf,
		mailSvc:     emailsvc.NewConsoleServiceMock(logger, conf),
		cache:       cache.NewMemoryCache(),
		usrRepo:     sqlxrepos.NewUserRepository(db),
		teacherRepo: sqlxrepos.NewTeacherRepository(db),
		schoolRepo:  sqlxrepos.NewSchoolRepository(db),
		lessonRepo:  sqlxrepos.NewLessonRepository(db),
	}

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	lesson.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up services
	teacherSvc := teacher.NewService(env.teacherRepo, env.cache)
	schoolSvc := school.NewService(env.schoolRepo, env.cache)
	lessonSvc := lesson.NewService(db, env.lessonRepo, teacherSvc, schoolSvc, env.cache)
	usrSvc := user.NewService(env.usrRepo, teacherSvc, conf)
	usrSvc.NowFunc = func() time.Time { return testNow }
	timetableSvc := timetable.NewService(lessonSvc, teacherSvc, schoolSvc, env.cache, logger, conf)
	timetableSvc.NowFunc = func() time.Time { return testNow }
	reportSvc := report.NewService(lessonSvc, teacherSvc, schoolSvc, env.mailSvc)
	reportSvc.NowFunc = func() time.Time { return testNow }
	backupSvc := backup.NewService(db, env.teacherRepo, env.schoolRepo, env.lessonRepo, lessonSvc, validate, env.cache)
	backupSvc.NowFunc = func() time.Time { return testNow }

	// set up server
	env.server = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		TeacherSvc:     teacherSvc,
		SchoolSvc:      schoolSvc,
		LessonSvc:      lessonSvc,
		TimetableSvc:   timetableSvc,
		ReportSvc:      reportSvc,
		BackupSvc:      backupSvc,
	})
	return env
}

// admin creates an admin user & returns it along with its token.
func (env *testEnv) admin(t *testing.T) (user.User, string) {
	usr := testutil.CreateUser(t, env.usrRepo, "boss@test.cd", "", user.RoleAdmin, "")
	return usr, env.token(t, usr)
}

// viewer creates a read-only user & returns it along with its token.
func (env *testEnv) viewer(t *testing.T) (user.User, string) {
	usr := testutil.CreateUser(t, env.usrRepo, "guest@test.cd", "", user.RoleViewer, "")
	return usr, env.token(t, usr)
}

func (env *testEnv) token(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr, env.conf), env.conf.SecretKey)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// serve runs tt against the server & checks the response code (and data, when wanted).
func (env *testEnv) serve(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	env.server.ServeHTTP(rec, req)
	if tt.wantData != nil {
		checkCodeAndData(t, tt, rec)
	} else if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "response code")
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v; body %s", err, rec.Body.String())
		return
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
