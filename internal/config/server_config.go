package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EchoServer configures the local HTTP API the dashboard frontend talks to.
type EchoServer struct {
	ListenAddress                  string
	HideInternalServerErrorDetails bool
}

// Logger configures zerolog.
type Logger struct {
	Level              string
	PrettyPrintConsole bool
}

// Vault configures local credential storage.
type Vault struct {
	Dir string
}

// Backend configures the brickbee backend session API.
type Backend struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Session configures the execution session lifecycle manager.
type Session struct {
	DefaultTTL    time.Duration
	RefreshWindow time.Duration
	TickInterval  time.Duration
	SweepInterval time.Duration
}

// Redis configures the optional server-custody credential store. Server
// custody is disabled when Endpoint is empty.
type Redis struct {
	Endpoint      string
	Password      string
	DB            int
	CredentialTTL time.Duration
}

// Server is the root configuration struct.
type Server struct {
	Echo    EchoServer
	Logger  Logger
	Vault   Vault
	Backend Backend
	Session Session
	Redis   Redis
}

// DefaultServiceConfigFromEnv builds the server configuration from the
// environment (prefix TRADEVAULT_, e.g. TRADEVAULT_ECHO_LISTEN_ADDRESS).
func DefaultServiceConfigFromEnv() Server {
	v := viper.New()
	v.SetEnvPrefix("TRADEVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("echo.listen_address", ":9365")
	v.SetDefault("echo.hide_internal_server_error_details", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.pretty_print_console", false)

	v.SetDefault("vault.dir", ".tradevault")

	v.SetDefault("backend.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("backend.request_timeout", 15*time.Second)

	v.SetDefault("session.default_ttl", time.Hour)
	v.SetDefault("session.refresh_window", 10*time.Minute)
	v.SetDefault("session.tick_interval", time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)

	v.SetDefault("redis.endpoint", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.credential_ttl", time.Duration(0))

	return Server{
		Echo: EchoServer{
			ListenAddress:                  v.GetString("echo.listen_address"),
			HideInternalServerErrorDetails: v.GetBool("echo.hide_internal_server_error_details"),
		},
		Logger: Logger{
			Level:              v.GetString("logger.level"),
			PrettyPrintConsole: v.GetBool("logger.pretty_print_console"),
		},
		Vault: Vault{
			Dir: v.GetString("vault.dir"),
		},
		Backend: Backend{
			BaseURL:        v.GetString("backend.base_url"),
			RequestTimeout: v.GetDuration("backend.request_timeout"),
		},
		Session: Session{
			DefaultTTL:    v.GetDuration("session.default_ttl"),
			RefreshWindow: v.GetDuration("session.refresh_window"),
			TickInterval:  v.GetDuration("session.tick_interval"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
		},
		Redis: Redis{
			Endpoint:      v.GetString("redis.endpoint"),
			Password:      v.GetString("redis.password"),
			DB:            v.GetInt("redis.db"),
			CredentialTTL: v.GetDuration("redis.credential_ttl"),
		},
	}
}
