package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/backend"
	"github.com/brickbee/go-trade-vault/internal/config"
	"github.com/brickbee/go-trade-vault/internal/session"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Router struct {
	Routes           []*echo.Route
	Root             *echo.Group
	Management       *echo.Group
	APIV1Credentials *echo.Group
	APIV1Sessions    *echo.Group
}

// Server is the central struct keeping all the dependencies. Components are
// built by the provider functions in providers.go and assembled in
// InitServer; Echo and Router are initialized separately by router.Init.
type Server struct {
	Echo   *echo.Echo `initialized:"optional"`
	Router *Router    `initialized:"optional"`

	Config  config.Server
	Clock   time2.Clock
	Backend *backend.Client
	Vault   *vault.Manager
	Session *session.Manager

	// Redis backs the server-custody credential store; nil when server
	// custody is not configured.
	Redis *redis.Client `initialized:"optional"`
}

func NewServer(cfg config.Server) *Server {
	return &Server{
		Config: cfg,
	}
}

// InitServer builds a fully wired server from the configuration. Echo and
// the router still have to be initialized with router.Init afterwards.
func InitServer(cfg config.Server) (*Server, error) {
	s := NewServer(cfg)
	s.Clock = NewClock()

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	s.Redis = redisClient

	s.Backend = NewBackendClient(cfg)
	s.Session = NewSessionManager(cfg, s.Backend, s.Clock)

	vaultManager, err := NewVaultManager(cfg, redisClient, s.Session, s.Clock)
	if err != nil {
		return nil, err
	}
	s.Vault = vaultManager

	return s, nil
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	if s.Echo == nil || s.Router == nil {
		return false
	}

	return true
}

// Start launches the session lifecycle loops and then blocks serving the
// local HTTP API.
func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	s.Session.Start()

	return s.Echo.Start(s.Config.Echo.ListenAddress)
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	// Stop ticking first so no refresh fires against a closing backend
	// connection, then revoke every live execution token.
	if s.Session != nil {
		s.Session.Stop()
		for _, sess := range s.Session.Sessions() {
			s.Session.DestroySession(ctx, sess.Platform)
		}
	}

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")
		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	if s.Redis != nil {
		log.Debug().Msg("Closing redis connection")
		if err := s.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis connection")
			errs = append(errs, err)
		}
	}

	return errs
}
