package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-redis/redis/v8"

	echoapi "github.com/projetogalileu/galileu/apps/api/echo"
	"github.com/projetogalileu/galileu/apps/shared"
	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/question"
	"github.com/projetogalileu/galileu/core/quiz"
	"github.com/projetogalileu/galileu/core/sensor"
	"github.com/projetogalileu/galileu/core/session"
	"github.com/projetogalileu/galileu/core/user"
	logsvc "github.com/projetogalileu/galileu/services/logger"
	"github.com/projetogalileu/galileu/services/mqtt"
	"github.com/projetogalileu/galileu/storage/blob"
	"github.com/projetogalileu/galileu/storage/cache"
	"github.com/projetogalileu/galileu/storage/history"
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
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	rigLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "RIG : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	ctx := context.Background()

	// set up DB
	db, err := setUpDB(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up caches & realtime store
	var (
		redisClient *redis.Client
		snapshots   sensor.Cache
		denylist    echoapi.Denylist
	)
	if conf.Redis.Address != "" {
		redisClient, err = cache.NewRedisClient(ctx, conf.Redis.Address, conf.Redis.Password, conf.Redis.DB)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer redisClient.Close()
		snapshots = cache.NewRedisSnapshotCache(redisClient, conf.Redis.SnapshotTTL)
		denylist = cache.NewRedisDenylist(redisClient)
	} else {
		snapshots = cache.NewMemorySnapshotCache(conf.Redis.SnapshotTTL)
		denylist = cache.NewMemoryDenylist()
	}

	store, closeStore, err := shared.OpenRealtimeStore(ctx, conf, redisClient, rigLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening realtime store: %v", err), err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			rigLogger.Error("Failed to close realtime store", err)
		}
	}()

	// set up the rig
	reader := sensor.NewReader(store, snapshots, rigLogger)
	reader.Start()
	defer reader.Close()

	if conf.MQTT.Broker != "" {
		bridge := mqtt.NewBridge(mqtt.Options{
			Broker:   conf.MQTT.Broker,
			ClientID: conf.MQTT.ClientID,
			Topic:    conf.MQTT.Topic,
			Username: conf.MQTT.Username,
			Password: conf.MQTT.Password,
			QoS:      conf.MQTT.QoS,
		}, store, rigLogger)
		if err = bridge.Start(); err != nil {
			logger.Fatal(fmt.Sprintf("connecting to the rig broker: %v", err), err)
		}
		defer bridge.Close()
	}

	// set up session history
	var sinks []session.HistorySink
	if conf.Influx.URL != "" {
		influx := history.NewInfluxSink(conf.Influx.URL, conf.Influx.Token, conf.Influx.Org, conf.Influx.Bucket, conf.Influx.Measurement)
		defer influx.Close()
		sinks = append(sinks, influx)
	}
	if conf.Timescale.DSN != "" {
		timescale, err := history.NewTimescaleSink(ctx, conf.Timescale.DSN, conf.Timescale.Table)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to timescale: %v", err), err)
		}
		defer timescale.Close()
		sinks = append(sinks, timescale)
	}

	// set up attachments
	var (
		blobs      question.Blobs
		uploadsDir string
	)
	switch conf.Blob.Backend {
	case "supabase":
		blobs = blob.NewSupabaseStore(conf.Blob.SupabaseURL, conf.Blob.SupabaseKey, conf.Blob.Bucket)
	default:
		uploadsDir = conf.Blob.Dir
		blobs = blob.NewLocalStore(uploadsDir, conf.Blob.BaseURL)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator, err := shared.NewValidator()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up validator: %v", err), err)
	}

	// set up services
	usrSvc := user.NewService(db.Users, validate)
	sessSvc := session.NewService(store, reader, session.LogReporter{Logger: rigLogger}, validate, logger,
		session.Options{WriteInterval: conf.Realtime.WriteInterval, OutboxSize: conf.Realtime.OutboxSize},
		sinks...,
	)
	defer sessSvc.Close()
	questionSvc := question.NewService(store, reader, blobs, validate, logger)
	roomSvc := classroom.NewService(db.Rooms, questionSvc, validate, logger)
	quizzes := quiz.NewManager(conf.Realtime.QuizTickInterval, logger)
	defer quizzes.Close()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("quizzes", expvar.Func(func() interface{} { return quizzes.Len() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		Denylist:    denylist,
		UploadsDir:  uploadsDir,
		UserSvc:     usrSvc,
		Sensor:      reader,
		SessionSvc:  sessSvc,
		QuestionSvc: questionSvc,
		RoomSvc:     roomSvc,
		Quizzes:     quizzes,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(ctx context.Context, conf *core.Config) (shared.DB, error) {
	db, err := shared.OpenDB(conf)
	if err != nil {
		return shared.DB{}, err
	}
	if err = db.Migrate(ctx); err != nil {
		_ = db.Close()
		return shared.DB{}, err
	}
	return db, nil
}
