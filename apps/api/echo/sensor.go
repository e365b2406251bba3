package echoapi

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/physics"
	"github.com/projetogalileu/galileu/core/sensor"
	"github.com/projetogalileu/galileu/services/render"
)

const (
	streamWriteWait = 10 * time.Second
	msgReading      = "leitura"
	msgChart        = "grafico"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origins are checked by the CORS middleware
	CheckOrigin: func(r *http.Request) bool { return true },
}

type (
	sensorApi struct {
		reader       *sensor.Reader
		pingInterval time.Duration
		logger       core.Logger
	}

	ForcesResponse struct {
		Reading sensor.Reading `json:"leitura"`
		Forces  physics.Forces `json:"forcas"`
	}

	streamMessage struct {
		Type    string              `json:"tipo"`
		Reading *sensor.Reading     `json:"leitura,omitempty"`
		Forces  *physics.Forces     `json:"forcas,omitempty"`
		Chart   []sensor.ChartPoint `json:"grafico,omitempty"`
	}
)

func registerSensorAPI(
	g *echo.Group,
	authed, wsAuthed []echo.MiddlewareFunc,
	reader *sensor.Reader,
	pingInterval time.Duration,
	logger core.Logger,
) {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	api := sensorApi{reader: reader, pingInterval: pingInterval, logger: logger}

	sg := g.Group("/sensor")
	sg.GET("/stream", api.stream, wsAuthed...)

	ag := sg.Group("", authed...)
	ag.GET("", api.reading)
	ag.GET("/forces", api.forces)
	ag.GET("/diagram", api.diagram)
	ag.GET("/diagram.png", api.diagramPNG)
	ag.GET("/chart", api.chart)
	ag.GET("/chart.png", api.chartPNG)
}

func (api *sensorApi) latest(ctx echo.Context) (sensor.Reading, error) {
	reading, err := api.reader.Latest(ctx.Request().Context())
	if err != nil {
		if errors.Cause(err) == sensor.ErrNoReading {
			return sensor.Reading{}, errNoReading
		}
		return sensor.Reading{}, errors.Wrap(err, "getting latest reading")
	}
	return reading, nil
}

func (api *sensorApi) reading(ctx echo.Context) error {
	reading, err := api.latest(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, reading)
}

func (api *sensorApi) forces(ctx echo.Context) error {
	reading, err := api.latest(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ForcesResponse{Reading: reading, Forces: reading.Forces().Rounded()})
}

// vectors builds the diagram of the latest reading. The "angulo" and "aceleracao" query params
// override the reading and "mostrar" lists the vectors to draw (comma separated).
func (api *sensorApi) vectors(ctx echo.Context) (physics.Vectors, error) {
	reading := api.reader.Snapshot()

	var angle, accel float64
	if reading.Angle != nil {
		angle = *reading.Angle
	}
	if reading.Acceleration != nil {
		accel = *reading.Acceleration
	}
	for param, dst := range map[string]*float64{"angulo": &angle, "aceleracao": &accel} {
		raw := ctx.QueryParam(param)
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return physics.Vectors{}, core.NewValidationError(nil, core.FieldError{Field: param, Error: "must be a number"})
		}
		*dst = f
	}

	opts := []physics.DiagramOption{physics.WithMeasuredForces(reading.Weight, reading.Normal, reading.Friction)}
	if show := ctx.QueryParam("mostrar"); show != "" {
		opts = append(opts, physics.WithVisible(strings.Split(show, ",")...))
	}
	return physics.Diagram(angle, accel, opts...), nil
}

func (api *sensorApi) diagram(ctx echo.Context) error {
	v, err := api.vectors(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *sensorApi) diagramPNG(ctx echo.Context) error {
	v, err := api.vectors(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := render.Diagram(&buf, v); err != nil {
		return errors.Wrap(err, "rendering diagram")
	}
	return ctx.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (api *sensorApi) chart(ctx echo.Context) error {
	points := api.reader.Chart()
	if points == nil {
		points = []sensor.ChartPoint{}
	}
	return ctx.JSON(http.StatusOK, points)
}

func (api *sensorApi) chartPNG(ctx echo.Context) error {
	points := api.reader.Chart()
	if len(points) == 0 {
		points = sensor.DefaultChart()
	}

	var current *sensor.ChartPoint
	if r := api.reader.Snapshot(); r.Angle != nil && r.Acceleration != nil {
		current = &sensor.ChartPoint{Angle: *r.Angle, Acceleration: *r.Acceleration}
	}
	var buf bytes.Buffer
	if err := render.Chart(&buf, "Aceleração x Ângulo", points, current); err != nil {
		return errors.Wrap(err, "rendering chart")
	}
	return ctx.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// stream pushes every new reading and chart to the client over a websocket.
// Slow clients only get the latest message.
func (api *sensorApi) stream(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already answered the client
		api.logger.Warn("websocket upgrade failed", err)
		return nil
	}
	defer conn.Close()

	updates := make(chan streamMessage, 1)
	push := func(msg streamMessage) {
		for {
			select {
			case updates <- msg:
				return
			default:
				select {
				case <-updates: // drop the stale one
				default:
				}
			}
		}
	}
	cancelReading := api.reader.OnChange(func(r sensor.Reading) {
		forces := r.Forces().Rounded()
		push(streamMessage{Type: msgReading, Reading: &r, Forces: &forces})
	})
	defer cancelReading()
	cancelChart := api.reader.OnChart(func(points []sensor.ChartPoint) {
		push(streamMessage{Type: msgChart, Chart: points})
	})
	defer cancelChart()

	// the client never sends anything useful; reading detects it going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	current := api.reader.Snapshot()
	forces := current.Forces().Rounded()
	if err := api.write(conn, streamMessage{Type: msgReading, Reading: &current, Forces: &forces, Chart: api.reader.Chart()}); err != nil {
		return nil
	}

	ping := time.NewTicker(api.pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return nil
		case msg := <-updates:
			if err := api.write(conn, msg); err != nil {
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return nil
			}
		}
	}
}

func (api *sensorApi) write(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	err := conn.WriteJSON(msg)
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		api.logger.Debug("websocket write failed", err)
	}
	return err
}
