package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Build        string
		Env          string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		WorkDir      string

		Server    serverConfig
		Database  databaseConfig
		Realtime  realtimeConfig
		MQTT      mqttConfig
		Redis     redisConfig
		Influx    influxConfig
		Timescale timescaleConfig
		Blob      blobConfig
	}

	serverConfig struct {
		Host                      string
		Address                   string
		DebugAddress              string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AllowedOrigins            []string
	}

	databaseConfig struct {
		Driver string // sqlx | gorm
		DSN    string
	}

	realtimeConfig struct {
		Backend            string // memory | redis
		Key                string // redis hash holding the tree
		WriteInterval      time.Duration
		OutboxSize         int
		StreamPingInterval time.Duration
		QuizTickInterval   time.Duration
	}

	mqttConfig struct {
		Broker   string
		ClientID string
		Topic    string
		Username string
		Password string
		QoS      byte
	}

	redisConfig struct {
		Address     string
		Password    string
		DB          int
		SnapshotTTL time.Duration
	}

	influxConfig struct {
		URL         string
		Token       string
		Org         string
		Bucket      string
		Measurement string
	}

	timescaleConfig struct {
		DSN   string
		Table string
	}

	blobConfig struct {
		Backend     string // local | supabase
		Dir         string
		BaseURL     string
		SupabaseURL string
		SupabaseKey string
		Bucket      string
	}
)

// NewConfig loads the configuration for the current ENV (DEV (default), TEST, QA, PROD).
// Values come from defaults, then config/.env.<env> (if present), then the environment.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		WorkDir:      workDir,
		Server: serverConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			AllowedOrigins:            v.GetStringSlice("server.allowedOrigins"),
		},
		Database: databaseConfig{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Realtime: realtimeConfig{
			Backend:            v.GetString("realtime.backend"),
			Key:                v.GetString("realtime.key"),
			WriteInterval:      v.GetDuration("realtime.writeInterval"),
			OutboxSize:         v.GetInt("realtime.outboxSize"),
			StreamPingInterval: v.GetDuration("realtime.streamPingInterval"),
			QuizTickInterval:   v.GetDuration("realtime.quizTickInterval"),
		},
		MQTT: mqttConfig{
			Broker:   v.GetString("mqtt.broker"),
			ClientID: v.GetString("mqtt.clientId"),
			Topic:    v.GetString("mqtt.topic"),
			Username: v.GetString("mqtt.username"),
			Password: v.GetString("mqtt.password"),
			QoS:      byte(v.GetInt("mqtt.qos")),
		},
		Redis: redisConfig{
			Address:     v.GetString("redis.address"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			SnapshotTTL: v.GetDuration("redis.snapshotTTL"),
		},
		Influx: influxConfig{
			URL:         v.GetString("influx.url"),
			Token:       v.GetString("influx.token"),
			Org:         v.GetString("influx.org"),
			Bucket:      v.GetString("influx.bucket"),
			Measurement: v.GetString("influx.measurement"),
		},
		Timescale: timescaleConfig{
			DSN:   v.GetString("timescale.dsn"),
			Table: v.GetString("timescale.table"),
		},
		Blob: blobConfig{
			Backend:     v.GetString("blob.backend"),
			Dir:         v.GetString("blob.dir"),
			BaseURL:     v.GetString("blob.baseURL"),
			SupabaseURL: v.GetString("blob.supabaseURL"),
			SupabaseKey: v.GetString("blob.supabaseKey"),
			Bucket:      v.GetString("blob.bucket"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Galileu")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "g4l1l3u-p1an0-1ncl1nad0-(s3n50r)+rig#dev-only-k3y")

	// server
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.allowedOrigins", []string{"*"})

	// relational store
	v.SetDefault("database.driver", "sqlx")
	v.SetDefault("database.dsn", "file:galileu.db?_pragma=foreign_keys(1)")

	// realtime
	v.SetDefault("realtime.backend", "memory")
	v.SetDefault("realtime.key", "galileu:realtime")
	v.SetDefault("realtime.writeInterval", 5*time.Second)
	v.SetDefault("realtime.outboxSize", 12)
	v.SetDefault("realtime.streamPingInterval", 30*time.Second)
	v.SetDefault("realtime.quizTickInterval", time.Second)

	// rig
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.clientId", "galileu-api")
	v.SetDefault("mqtt.topic", "sensor/#")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 0)

	// cache
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.snapshotTTL", time.Minute)

	// history
	v.SetDefault("influx.url", "")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "galileu")
	v.SetDefault("influx.bucket", "simulacoes")
	v.SetDefault("influx.measurement", "sensor")
	v.SetDefault("timescale.dsn", "")
	v.SetDefault("timescale.table", "simulation_snapshots")

	// attachments
	v.SetDefault("blob.backend", "local")
	v.SetDefault("blob.dir", "uploads")
	v.SetDefault("blob.baseURL", "http://localhost:8000/uploads")
	v.SetDefault("blob.supabaseURL", "")
	v.SetDefault("blob.supabaseKey", "")
	v.SetDefault("blob.bucket", "arquivos")

	v.SetDefault("rollbarToken", "")
}
