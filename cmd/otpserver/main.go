package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	otpgin "github.com/PaulFidika/otpkit/adapters/gin"
	"github.com/PaulFidika/otpkit/adapters/ginutil"
	"github.com/PaulFidika/otpkit/config"
	"github.com/PaulFidika/otpkit/identity"
	jwtkit "github.com/PaulFidika/otpkit/jwt"
	"github.com/PaulFidika/otpkit/logging"
	migrations "github.com/PaulFidika/otpkit/migrations/postgres"
	"github.com/PaulFidika/otpkit/otp"
	memorylimiter "github.com/PaulFidika/otpkit/ratelimit/memory"
	redislimiter "github.com/PaulFidika/otpkit/ratelimit/redis"
	memorystore "github.com/PaulFidika/otpkit/storage/memory"
	redisstore "github.com/PaulFidika/otpkit/storage/redis"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults when empty)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	ginutil.Logger = log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("otpserver exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	policy, err := cfg.Core()
	if err != nil {
		return err
	}

	var (
		store   otp.ChallengeStore
		limiter ginutil.RateLimiter
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		store = redisstore.NewChallengeStore(rdb, cfg.Redis.KeyPrefix)
		limiter = redislimiter.New(rdb, cfg.Redis.KeyPrefix, nil)
		log.WithField("addr", cfg.Redis.Addr).Info("using redis challenge store")
	} else {
		store = memorystore.NewChallengeStore()
		limiter = memorylimiter.New(nil)
		log.Warn("redis not configured; using in-memory challenge store")
	}

	keys, err := jwtkit.NewKeySource(cfg.Server.KeyID, cfg.Server.PrivateKeyFile)
	if err != nil {
		return err
	}
	opts := []otp.ServiceOption{
		otp.WithLogger(log),
		otp.WithProofIssuer(&jwtkit.ProofIssuer{Keys: keys, Issuer: cfg.Server.Issuer, TTL: cfg.Server.ProofTTL}),
	}

	if cfg.Postgres.DSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if cfg.Postgres.Migrate {
			applied, err := migrations.ApplyUp(ctx, pool)
			if err != nil {
				return err
			}
			if len(applied) > 0 {
				log.WithField("migrations", applied).Info("database migrated")
			}
		}
		opts = append(opts, otp.WithRecorder(identity.NewStore(pool, cfg.Postgres.Schema)))
	}

	svc := otp.NewService(otp.Config{
		Policy:  policy,
		CodeTTL: cfg.Verification.CodeTTL,
	}, store, otp.LogSender{Log: log}, opts...)

	sweeper := cron.New(cron.WithLogger(logging.NewCronLogger(log)))
	if _, ok := store.(otp.Sweeper); ok {
		_, err := sweeper.AddFunc("@every 1m", func() {
			runID := uuid.NewString()
			if n := svc.Sweep(ctx); n > 0 {
				log.WithFields(logrus.Fields{"job": "challenge_sweep", "run_id": runID, "removed": n}).Info("expired challenges removed")
			}
		})
		if err != nil {
			return err
		}
	}
	sweeper.Start()
	defer sweeper.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	otpgin.NewService(svc, keys).WithRateLimiter(limiter).GinRegisterAPI(r)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("otpserver listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
