// Command geotaskcli wires the GeoTask client core end to end: environment
// configuration, the interceptor pipeline, session management and the
// realtime channel. It signs in, prints the profile and current tasks, then
// stays connected to the realtime endpoint until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DonShan/GeoTask/internal/api"
	"github.com/DonShan/GeoTask/internal/httpclient"
	"github.com/DonShan/GeoTask/internal/interceptor"
	"github.com/DonShan/GeoTask/internal/realtime"
	"github.com/DonShan/GeoTask/internal/session"
	"github.com/DonShan/GeoTask/pkg/config"
	"github.com/DonShan/GeoTask/pkg/kvstore"
	"github.com/DonShan/GeoTask/pkg/logger"
)

type cliConfig struct {
	BaseURL     string `env:"GEOTASK_API_BASE_URL" envDefault:"https://api.geotask.app/api/v1"`
	RealtimeURL string `env:"GEOTASK_REALTIME_URL" envDefault:"wss://rt.geotask.app/ws"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Email    string `env:"GEOTASK_EMAIL"`
	Password string `env:"GEOTASK_PASSWORD"`

	RequestsPerMinute int           `env:"GEOTASK_REQUESTS_PER_MINUTE" envDefault:"120"`
	CacheTTL          time.Duration `env:"GEOTASK_CACHE_TTL" envDefault:"30s"`

	// Optional Redis backing for session persistence and the response
	// cache; in-process fallbacks are used when unset.
	RedisHost string `env:"GEOTASK_REDIS_HOST"`
	RedisPort int    `env:"GEOTASK_REDIS_PORT" envDefault:"6379"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg := &cliConfig{}
	if err := config.Load(cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("geotaskcli", cfg.LogLevel)
	log.Info("starting geotask client",
		slog.String("base_url", cfg.BaseURL),
		slog.String("realtime_url", cfg.RealtimeURL),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, cache, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}

	chain := interceptor.NewChain()
	client, err := httpclient.New(httpclient.DefaultConfig(cfg.BaseURL), chain, log)
	if err != nil {
		return fmt.Errorf("create http client: %w", err)
	}

	svc := api.NewService(client, log)
	manager, err := session.NewManager(ctx, svc, store, log)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	defer manager.Close()

	// Standard pipeline: auth before logging so logs show the final
	// authenticated request; rate limiting last on the request side.
	for _, i := range []any{
		interceptor.NewMetrics(),
		interceptor.NewAuth(manager),
		interceptor.NewLogging(log),
		interceptor.NewRateLimit(cfg.RequestsPerMinute, log),
		interceptor.NewResponseCache(cache, cfg.CacheTTL, log),
		interceptor.NewClassify(),
	} {
		if err := chain.Use(i); err != nil {
			return fmt.Errorf("register interceptor: %w", err)
		}
	}

	unsubscribe := manager.OnStateChange(func(s session.State) {
		log.Info("session state", slog.String("state", s.String()))
	})
	defer unsubscribe()

	if !manager.IsAuthenticated() {
		if cfg.Email == "" || cfg.Password == "" {
			return fmt.Errorf("no persisted session: set GEOTASK_EMAIL and GEOTASK_PASSWORD")
		}
		if err := manager.Login(ctx, session.Credentials{Email: cfg.Email, Password: cfg.Password}); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	profile, err := svc.Profile(ctx)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	log.Info("signed in", slog.String("user", profile.Name), slog.String("email", profile.Email))

	tasks, err := svc.Tasks.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	for _, t := range tasks {
		fmt.Printf("%s\t%s\t%s\n", t.ID, t.Status, t.Title)
	}

	rt := realtime.NewClient(realtime.DefaultConfig(cfg.RealtimeURL), log)
	rt.OnMessage(func(env realtime.Envelope) {
		log.Info("chat message",
			slog.String("sender", env.Sender),
			slog.String("room", env.Room),
			slog.String("payload", string(env.Payload)),
		)
	})
	rt.OnTyping(func(users []string) {
		log.Info("typing", slog.Any("users", users))
	})

	token, ok := manager.ValidToken()
	if !ok {
		return fmt.Errorf("no valid token for realtime connect")
	}
	if err := rt.Connect(ctx, token); err != nil {
		return fmt.Errorf("realtime connect: %w", err)
	}
	defer rt.Disconnect()

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// buildStores picks Redis-backed persistence and caching when configured,
// in-process fallbacks otherwise.
func buildStores(ctx context.Context, cfg *cliConfig) (kvstore.Store, interceptor.Cache, error) {
	if cfg.RedisHost == "" {
		return kvstore.NewMemory(), interceptor.NewMemoryCache(), nil
	}

	redisStore, err := kvstore.NewRedis(ctx, kvstore.RedisConfig{
		Host: cfg.RedisHost,
		Port: cfg.RedisPort,
	}, "geotask")
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return redisStore, interceptor.NewRedisCache(redisStore.Client(), "geotask:cache"), nil
}
