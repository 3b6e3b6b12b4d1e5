package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName           string
		Build             string
		Env               string // DEV (local; default), TEST, QA, PROD
		Debug             bool
		TestMode          bool
		SecretKey         string
		DefaultAdminEmail string
		WorkDir           string
		RollbarToken      string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Email    EmailConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		CORSOrigins               []string
		FirstSlotHour             int
		LastSlotHour              int
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite3
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite3 only
	}

	RedisConfig struct {
		Address  string // an in-process cache is used when empty
		Password string
		DB       int
		TTL      time.Duration
	}

	EmailConfig struct {
		SendgridApiKey   string
		DefaultFromEmail string
		DefaultFromName  string
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "ScheduleMe")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "x7c#n2-q9v$yr!0+ak_l@4wf(3z8pe*dh&6tu)m=5gs")
	v.SetDefault("defaultAdminEmail", "admin@localhost")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("serverReadTimeout", 10*time.Second)
	v.SetDefault("serverWriteTimeout", 30*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 30*24*time.Hour)
	v.SetDefault("corsOrigins", "*")
	v.SetDefault("firstSlotHour", 8)
	v.SetDefault("lastSlotHour", 20)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "scheduleme")
	v.SetDefault("dbUser", "scheduleme")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("dbPath", "scheduleme.db")

	v.SetDefault("redisAddress", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("redisTTL", 10*time.Minute)

	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	appName := v.GetString("appName")
	return &Config{
		AppName:           appName,
		Build:             v.GetString("build"),
		Env:               env,
		Debug:             v.GetBool("debug"),
		TestMode:          v.GetBool("testMode"),
		SecretKey:         v.GetString("secretKey"),
		DefaultAdminEmail: CleanString(v.GetString("defaultAdminEmail"), true /* lower */),
		WorkDir:           wd,
		RollbarToken:      v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Address:                   v.GetString("serverAddress"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			ReadTimeout:               v.GetDuration("serverReadTimeout"),
			WriteTimeout:              v.GetDuration("serverWriteTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			CORSOrigins:               splitList(v.GetString("corsOrigins")),
			FirstSlotHour:             v.GetInt("firstSlotHour"),
			LastSlotHour:              v.GetInt("lastSlotHour"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
			Path:          v.GetString("dbPath"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redisAddress"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
			TTL:      v.GetDuration("redisTTL"),
		},
		Email: EmailConfig{
			SendgridApiKey:   v.GetString("sendgridApiKey"),
			DefaultFromEmail: v.GetString("defaultFromEmail"),
			DefaultFromName:  appName,
		},
	}
}

// NewTestConfig returns a Config suitable for tests: sqlite3 in-memory DB, no caching, no rollbar.
func NewTestConfig() *Config {
	return &Config{
		AppName:           "ScheduleMe",
		Build:             "test",
		Env:               "TEST",
		Debug:             false,
		TestMode:          true,
		SecretKey:         "test-secret",
		DefaultAdminEmail: "admin@localhost",
		Server: ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			CORSOrigins:               []string{"*"},
			FirstSlotHour:             8,
			LastSlotHour:              20,
		},
		Database: DatabaseConfig{Engine: "sqlite3", Path: ":memory:"},
		Email:    EmailConfig{DefaultFromEmail: "noreply@localhost", DefaultFromName: "ScheduleMe"},
	}
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the package being tested; config and assets are
// resolved from the root instead. Falls back to the working directory when no go.mod is found
// (e.g. a deployed binary).
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(fmt.Errorf("core.Getwd: %v", err))
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
