package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/projetogalileu/galileu/apps/api/echo"
	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/question"
	"github.com/projetogalileu/galileu/core/quiz"
	"github.com/projetogalileu/galileu/core/sensor"
	"github.com/projetogalileu/galileu/core/session"
	"github.com/projetogalileu/galileu/core/user"
	"github.com/projetogalileu/galileu/storage/blob"
	"github.com/projetogalileu/galileu/storage/database/inmem"
	"github.com/projetogalileu/galileu/storage/realtime/memory"
	"github.com/projetogalileu/galileu/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app     Server
	conf    *core.Config
	store   *memstore.Store
	usrRepo user.Repository
	quizzes *quiz.Manager
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := testutil.NewConfig()
	validate, translator := testutil.NewValidate()
	logger := testutil.Logger

	// set up stores & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	store := memstore.New()

	// set up services
	reader := sensor.NewReader(store, nil, logger)
	reader.Start()
	t.Cleanup(reader.Close)

	sessSvc := session.NewService(store, reader, session.LogReporter{Logger: logger}, validate, logger,
		session.Options{WriteInterval: conf.Realtime.WriteInterval})
	t.Cleanup(sessSvc.Close)

	uploads := t.TempDir()
	questionSvc := question.NewService(store, reader, blob.NewLocalStore(uploads, "http://test/uploads"), validate, logger)
	roomSvc := classroom.NewService(inmemdb.NewRoomRepository(db), questionSvc, validate, logger)
	quizzes := quiz.NewManager(conf.Realtime.QuizTickInterval, logger)
	t.Cleanup(quizzes.Close)

	// set up server
	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UploadsDir:     uploads,
		UserSvc:        user.NewService(usrRepo, validate),
		Sensor:         reader,
		SessionSvc:     sessSvc,
		QuestionSvc:    questionSvc,
		RoomSvc:        roomSvc,
		Quizzes:        quizzes,
	})
	return &testEnv{app: app, conf: conf, store: store, usrRepo: usrRepo, quizzes: quizzes}
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(env.conf, GetUserClaims(env.conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", rec.Body.String(), err)
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
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
