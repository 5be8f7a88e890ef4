package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/mojzu/sso/internal/audit"
	"github.com/mojzu/sso/internal/authpipeline"
	"github.com/mojzu/sso/internal/config"
	"github.com/mojzu/sso/internal/csrf"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/jwtengine"
	"github.com/mojzu/sso/internal/keyengine"
	"github.com/mojzu/sso/internal/localauth"
	"github.com/mojzu/sso/internal/logger"
	"github.com/mojzu/sso/internal/mailer"
	"github.com/mojzu/sso/internal/oauth2provider"
	"github.com/mojzu/sso/internal/passwordmeta"
	"github.com/mojzu/sso/internal/security/password"
	"github.com/mojzu/sso/internal/store"
	"github.com/mojzu/sso/internal/store/postgres"
	"github.com/mojzu/sso/internal/store/rediscache"
	"github.com/mojzu/sso/internal/tokenrefresh"
	http_handlers "github.com/mojzu/sso/internal/transport/http/handlers"
	"github.com/mojzu/sso/internal/transport/http/middleware"
	"github.com/mojzu/sso/internal/transport/http/response"
	"github.com/mojzu/sso/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(dsn string) (DBCloser, error)

	NewRedis func(addr, password string, db int) RedisClient

	NewMailSink func(cfg *config.Config) (MailCloser, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type DBCloser interface {
	Close() error
}

type RedisClient interface {
	Ping(ctx context.Context) error
	Close() error
}

type MailCloser interface {
	mailer.Sink
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 1) db
	dbCloser, err := deps.NewDB(cfg.DBAddr)
	if err != nil {
		return nil, nil, err
	}

	cleanupFns := []func(){
		func() { _ = dbCloser.Close() },
	}

	sqlDB, ok := dbCloser.(*sql.DB)
	if !ok {
		runCleanup(cleanupFns)
		return nil, nil, errors.New("bootstrap: NewDB did not return *sql.DB")
	}

	pgStore := postgres.New(sqlDB)
	var st store.Store = pgStore

	// 2) redis (best-effort key cache + rate limiting)
	var redisCli RedisClient
	if deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.Ping(ctx); err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; key cache and rate limiting disabled")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
		cancel()
	}

	var rateLimiter *rediscache.FixedWindowLimiter
	if redisCli != nil {
		rc := redisCli.(*rediscache.Client)
		cachedKeys := rediscache.NewCachedKeyRepo(pgStore.Keys(), rc, cfg.KeyCacheTTL)
		st = cachedKeyStore{Store: pgStore, keys: cachedKeys}
		rateLimiter = rediscache.NewFixedWindowLimiter(rc)
	}

	// 3) mail sink
	mailSink, err := deps.NewMailSink(cfg)
	if err != nil {
		if cfg.Env == "dev" {
			logger.Logger.Warn().Err(err).Msg("mail sink unavailable; using direct SMTP sink")
			mailSink = mailer.NewDirectSink(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFromName)
		} else {
			runCleanup(cleanupFns)
			return nil, nil, err
		}
	}
	if c, ok := mailSink.(interface{ Close() error }); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}

	// 4) domain engines
	keys := keyengine.New(st)
	jwt := jwtengine.New()
	csrfReg := csrf.New(st)
	auditEngine := audit.NewEngine(st, logger.Logger)
	pipeline := authpipeline.New(st, keys, jwt)
	hasher := password.NewHasher(password.Params{
		Memory:      cfg.Argon2Memory,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
		SaltLength:  password.DefaultParams().SaltLength,
		KeyLength:   password.DefaultParams().KeyLength,
	})
	meta := passwordmeta.New(cfg.PwnedPasswordsEnabled, logger.Logger)

	localTTL := localauth.TokenTTL{
		Access:  cfg.AccessTokenTTL,
		Refresh: cfg.RefreshTokenTTL,
		Short:   cfg.ShortTokenTTL,
	}
	localProvider := localauth.New(st, keys, jwt, csrfReg, hasher, meta, auditEngine, mailSink, logger.Logger, localTTL)

	refreshTTL := tokenrefresh.TokenTTL{Access: cfg.AccessTokenTTL, Refresh: cfg.RefreshTokenTTL}
	refreshEngine := tokenrefresh.New(st, keys, jwt, csrfReg, auditEngine, logger.Logger, refreshTTL)

	githubClient := oauth2provider.NewGitHubClient(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURI)
	microsoftClient := oauth2provider.NewMicrosoftClient(cfg.MicrosoftClientID, cfg.MicrosoftClientSecret, cfg.MicrosoftTenant, cfg.MicrosoftRedirectURI)
	oauthTTL := oauth2provider.TokenTTL{Access: cfg.AccessTokenTTL, Refresh: cfg.RefreshTokenTTL}
	oauthEngine := oauth2provider.New(st, keys, jwt, csrfReg, auditEngine, logger.Logger, oauthTTL, githubClient, microsoftClient)

	// 5) seed the root key (dev convenience; in prod an operator mints it
	// out of band and sets ROOT_KEY_SEED only for the very first boot)
	if cfg.RootKeySeed != "" {
		seedRootKey(context.Background(), st, cfg.RootKeySeed)
	}

	// 6) background CSRF sweep, one instance at a time across replicas
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runCsrfSweep(sweepCtx, st, csrfReg, cfg.CsrfSweepInterval)
	cleanupFns = append(cleanupFns, stopSweep)

	// 7) handlers
	authH := http_handlers.NewAuthHandler(localProvider)
	tokenH := http_handlers.NewTokenHandler(refreshEngine)
	oauthH := http_handlers.NewOAuthHandler(oauthEngine)
	serviceH := http_handlers.NewServiceHandler(st)
	userH := http_handlers.NewUserHandler(st)
	keyH := http_handlers.NewKeyHandler(keys)
	auditH := http_handlers.NewAuditHandler(auditEngine, cfg.AuditUpdateGrace)
	healthH := http_handlers.NewHealthHandler(sqlDB)

	rl := func(routeKey string, limit int, window time.Duration) func(http.Handler) http.Handler {
		if rateLimiter == nil {
			return nil
		}
		return middleware.RateLimitFixedWindow(
			rateLimiter,
			middleware.FixedWindowConfig{RouteKey: routeKey, Limit: limit, Window: window},
			response.WriteError,
		)
	}

	// 8) router
	mux, err := deps.NewRouter(router.Deps{
		Health:  healthH,
		Auth:    authH,
		Token:   tokenH,
		OAuth:   oauthH,
		Service: serviceH,
		User:    userH,
		Key:     keyH,
		Audit:   auditH,

		Pipeline:       pipeline,
		InternalSecret: cfg.InternalSecret,

		RLLogin:        rl("auth.login", 10, time.Minute),
		RLResetRequest: rl("auth.password.reset.request", 5, 10*time.Minute),
		RLOAuthStart:   rl("oauth.start", 10, time.Minute),
	})
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 9) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

// seedRootKey mints a root key with a caller-supplied value if one with
// that value doesn't already exist. Errors are logged, not fatal: an
// existing root key with that value on restart is the expected steady
// state, not a misconfiguration.
func seedRootKey(ctx context.Context, st store.Store, value string) {
	if existing, err := st.Keys().Read(ctx, domain.KeyReadRootValue(value)); err == nil && existing != nil {
		return
	}
	_, err := st.Keys().Create(ctx, domain.KeyCreate{
		IsEnabled: true,
		Type:      domain.KeyTypeKey,
		Name:      "seed",
		Value:     value,
	})
	if err != nil {
		logger.Logger.Info().Err(err).Msg("root key seed skipped (already present or rejected)")
	}
}

func runCsrfSweep(ctx context.Context, st store.Store, reg *csrf.Registry, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := st.AdvisoryLock(ctx, postgres.LockNamespaceCSRFSweep, func(ctx context.Context) error {
				n, err := reg.Sweep(ctx)
				if err != nil {
					return err
				}
				if n > 0 {
					logger.Logger.Debug().Int64("rows", n).Msg("csrf sweep")
				}
				return nil
			})
			if err != nil && ctx.Err() == nil {
				logger.Logger.Warn().Err(err).Msg("csrf sweep failed")
			}
		}
	}
}

// cachedKeyStore decorates store.Store to swap in a Redis-cached
// KeyRepo while leaving every other repo pointed at Postgres directly.
type cachedKeyStore struct {
	store.Store
	keys *rediscache.CachedKeyRepo
}

func (s cachedKeyStore) Keys() store.KeyRepo { return s.keys }

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB: func(dsn string) (DBCloser, error) {
			db, err := postgres.NewDB(context.Background(), dsn)
			if err != nil {
				return nil, err
			}
			return db, nil
		},
		NewRedis: func(addr, password string, db int) RedisClient {
			return rediscache.New(addr, password, db)
		},
		NewMailSink: func(cfg *config.Config) (MailCloser, error) {
			if cfg.Env == "dev" {
				return mailer.NewDirectSink(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFromName), nil
			}
			return mailer.NewRabbitMQSink(cfg.RabbitURL)
		},
		NewRouter: func(d router.Deps) (http.Handler, error) {
			return router.New(d)
		},
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
