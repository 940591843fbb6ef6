package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/vieilles-charrues/mintauction/internal/auction"
	"github.com/vieilles-charrues/mintauction/internal/config"
	"github.com/vieilles-charrues/mintauction/internal/db"
	"github.com/vieilles-charrues/mintauction/internal/http/api"
	"github.com/vieilles-charrues/mintauction/internal/issuance"
	"github.com/vieilles-charrues/mintauction/internal/ledger"
	"github.com/vieilles-charrues/mintauction/internal/logging"
	"github.com/vieilles-charrues/mintauction/internal/ratelimit"
	"github.com/vieilles-charrues/mintauction/internal/security"
	"github.com/vieilles-charrues/mintauction/internal/task"
	"gorm.io/gorm"
)

// shutdownTimeout bounds how long in-flight requests may finish on shutdown.
const shutdownTimeout = 10 * time.Second

// Services bundles the programs and stores behind the HTTP surface.
type Services struct {
	DB         *gorm.DB
	Runtime    *ledger.Runtime
	Issuance   *issuance.Service
	Auctions   *auction.Service
	Challenges *security.ChallengeStore
	Limiter    *ratelimit.Manager
}

// Close releases resources held by the services.
func (s *Services) Close() error {
	if s == nil || s.Limiter == nil {
		return nil
	}
	return s.Limiter.Close()
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := resolveDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn.WithContext(ctx))
}

// NewServices wires the ledger runtime and the programs on conn.
func NewServices(conn *gorm.DB, serverCfg config.ServerConfig, nowFn func() time.Time) (*Services, error) {
	if conn == nil {
		return nil, fmt.Errorf("app: database is nil")
	}
	programID, err := solana.PublicKeyFromBase58(serverCfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("app: parse program-id: %w", err)
	}
	var auctionOpts []auction.Option
	if serverCfg.Treasury != "" {
		treasury, errTreasury := solana.PublicKeyFromBase58(serverCfg.Treasury)
		if errTreasury != nil {
			return nil, fmt.Errorf("app: parse treasury: %w", errTreasury)
		}
		auctionOpts = append(auctionOpts, auction.WithTreasury(treasury))
	}

	runtime := ledger.NewRuntime(conn, programID, nowFn)
	issuer, err := issuance.NewService(runtime)
	if err != nil {
		return nil, err
	}
	auctions, err := auction.NewService(runtime, auctionOpts...)
	if err != nil {
		return nil, err
	}
	limits := ratelimit.SettingsFromConfig(serverCfg.RateLimit)

	return &Services{
		DB:         conn,
		Runtime:    runtime,
		Issuance:   issuer,
		Auctions:   auctions,
		Challenges: security.NewChallengeStore(conn, nowFn, 0),
		Limiter:    ratelimit.NewManager(ratelimit.Static(limits), nowFn, nil),
	}, nil
}

// NewRouter builds the gin engine serving services.
func NewRouter(services *Services, serverCfg config.ServerConfig, jwtCfg config.JWTConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), logging.GinMiddleware())
	api.RegisterRoutes(engine, api.Dependencies{
		DB:         services.DB,
		Runtime:    services.Runtime,
		Issuance:   services.Issuance,
		Auctions:   services.Auctions,
		Challenges: services.Challenges,
		BidLimiter: services.Limiter,
		JWT:        jwtCfg,
		Faucet:     serverCfg.Faucet,
	})
	return engine
}

// resolvePort picks the listen port: an explicit flag value, then the config
// file, then the default.
func resolvePort(flagPort, configPort int) int {
	switch {
	case flagPort > 0:
		return flagPort
	case configPort > 0:
		return configPort
	default:
		return defaultPort
	}
}

// RunServer boots the auction API and its background jobs, and blocks until
// ctx is cancelled or the listener fails. A zero port defers to the config file.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	serverCfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(serverCfg)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := logCloser.Close(); errClose != nil {
			log.WithError(errClose).Warn("close log output failed")
		}
	}()
	if !serverCfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	dsn, err := resolveDSN(configPath)
	if err != nil {
		return err
	}
	if summary, errDescribe := describeDSN(dsn); errDescribe == nil {
		log.Infof("database: %s", summary)
	}
	jwtCfg, err := config.LoadJWTConfig(configPath)
	if err != nil {
		return err
	}
	if jwtCfg.Secret == "" {
		secret, errSecret := generateJWTSecret()
		if errSecret != nil {
			return errSecret
		}
		jwtCfg.Secret = secret
		log.Warn("jwt secret not configured, using an ephemeral secret; sessions end on restart")
	}

	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	services, err := NewServices(conn, serverCfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := services.Close(); errClose != nil {
			log.WithError(errClose).Warn("close rate limiter failed")
		}
	}()

	watcher := task.NewExpiryWatcher(services.Auctions, nil)
	scheduler, err := task.Start(ctx, []task.Task{watcher.Task(serverCfg.Tasks.ExpiryScanInterval)})
	if err != nil {
		return err
	}
	defer func() {
		if errShutdown := scheduler.Shutdown(); errShutdown != nil {
			log.WithError(errShutdown).Warn("stop scheduler failed")
		}
	}()

	port = resolvePort(port, serverCfg.Port)
	server := &http.Server{
		Addr:              net.JoinHostPort(serverCfg.Host, strconv.Itoa(port)),
		Handler:           NewRouter(services, serverCfg, jwtCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errServe := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":    server.Addr,
			"mint":    services.Issuance.MintAddress().String(),
			"program": services.Runtime.ProgramID().String(),
		}).Infof("starting mintauction with config=%s", configPath)
		if errListen := server.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
			errServe <- errListen
			return
		}
		errServe <- nil
	}()

	select {
	case errListen := <-errServe:
		return errListen
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down")
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown server: %w", errShutdown)
	}
	return <-errServe
}
