package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projetogalileu/galileu/core/physics"
	"github.com/projetogalileu/galileu/core/sensor"
	"github.com/projetogalileu/galileu/core/user"
	"github.com/projetogalileu/galileu/tests"
)

func (env *testEnv) pushReading(t *testing.T, values map[string]interface{}) {
	t.Helper()
	require.NoError(t, env.store.Update(context.Background(), sensor.Root, values))
}

func Test_sensorApi(t *testing.T) {
	env := setup(t)
	student := testutil.CreateUser(t, env.usrRepo, "Ana", "ana", "ana@escola.br", "", []string{user.RoleStudent}, true)
	token := env.getToken(t, student)

	runHTTPTests(t, env, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/sensor", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "No reading yet", method: http.MethodGet, path: "/v1/sensor", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "no sensor reading yet"})},
		{
			name: "Bad diagram param", method: http.MethodGet, path: "/v1/sensor/diagram?angulo=lol", token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"angulo": "must be a number"}),
		},
	})

	env.pushReading(t, map[string]interface{}{
		sensor.KeyAngle:        30.004,
		sensor.KeyWeight:       0.2,
		sensor.KeyFriction:     0.05,
		sensor.KeyAcceleration: 4.9,
	})

	t.Run("reading", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/sensor", token)
		require.Equal(t, http.StatusOK, rec.Code)
		var reading sensor.Reading
		unmarshal(t, rec, &reading)
		require.NotNil(t, reading.Angle)
		assert.Equal(t, 30.0, *reading.Angle)
		assert.Nil(t, reading.Distance)
	})

	t.Run("forces", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/sensor/forces", token)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Forces physics.Forces `json:"forcas"`
		}
		unmarshal(t, rec, &resp)
		require.True(t, resp.Forces.Ready())
		assert.Equal(t, 0.1, *resp.Forces.Px)
		assert.Equal(t, 0.17, *resp.Forces.Py)
		assert.Equal(t, 0.12, *resp.Forces.Resultant)
	})

	t.Run("diagram", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/sensor/diagram?angulo=45&mostrar=peso,normal", token)
		require.Equal(t, http.StatusOK, rec.Code)
		var v physics.Vectors
		unmarshal(t, rec, &v)
		assert.Equal(t, 45.0, v.Angle)
		assert.Equal(t, 4.9, v.Acceleration)
		require.Len(t, v.Vectors, 2)
	})

	for _, path := range []string{"/v1/sensor/diagram.png", "/v1/sensor/chart.png"} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(http.MethodGet, path, token)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
			_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
			assert.NoError(t, err)
		})
	}
}

func Test_sensorApi_stream(t *testing.T) {
	env := setup(t)
	student := testutil.CreateUser(t, env.usrRepo, "Ana", "ana", "ana@escola.br", "", []string{user.RoleStudent}, true)
	srv := httptest.NewServer(env.app)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sensor/stream"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+env.getToken(t, student), nil)
	require.NoError(t, err)
	defer conn.Close()

	type message struct {
		Type    string          `json:"tipo"`
		Reading *sensor.Reading `json:"leitura"`
	}
	read := func() message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	// current state first
	msg := read()
	assert.Equal(t, "leitura", msg.Type)
	require.NotNil(t, msg.Reading)
	assert.Nil(t, msg.Reading.Angle)

	env.pushReading(t, map[string]interface{}{sensor.KeyAngle: 12.346})
	for {
		msg = read()
		if msg.Type == "leitura" && msg.Reading != nil && msg.Reading.Angle != nil {
			break
		}
	}
	assert.Equal(t, 12.35, *msg.Reading.Angle)
}
