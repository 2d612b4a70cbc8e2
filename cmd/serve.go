package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"salesbot/config"
	"salesbot/discord"
	"salesbot/monitoring"
	"salesbot/notify"
	"salesbot/ops"
	"salesbot/ratelimit"
	"salesbot/services"
	"salesbot/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Environment)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()
	log.Info("database connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter, redisHealth, err := buildLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}

	sched := services.NewScheduler()
	events := notify.New(cfg, log)
	if events != nil {
		log.Info("event feed enabled", zap.String("channel", cfg.EventsChannel))
	}

	tickets := services.NewTicketService(cfg, st.Tickets, st.Customers, limiter, sched, events, log)
	payments := services.NewPaymentService(cfg, st.Tickets, st.Customers, st.Transactions, st.Audit, sched, events, log)

	bot, err := discord.New(cfg, st, tickets, payments, limiter, sched, log)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	if err := bot.Start(); err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	defer bot.Stop()

	var opsServer *ops.Server
	if cfg.EnableMetrics {
		checks := map[string]ops.HealthChecker{"database": st.HealthCheck}
		if redisHealth != nil {
			checks["redis"] = redisHealth
		}
		opsServer = ops.New(cfg.MetricsPort, checks, log)
		go func() {
			if err := opsServer.Start(); err != nil {
				log.Error("ops server failed", zap.Error(err))
			}
		}()

		go monitoring.StartPendingRefresher(ctx, 30*time.Second, func(ctx context.Context) (int, error) {
			return st.Tickets.CountPending(ctx, cfg.GuildID)
		}, log)
	}

	log.Info("bot running", zap.String("guild_id", cfg.GuildID))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()
	if opsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("ops shutdown failed", zap.Error(err))
		}
	}
	return nil
}

// buildLimiter picks the rate limit backend. The redis limiter also
// contributes a health check.
func buildLimiter(ctx context.Context, cfg *config.Config, log *zap.Logger) (ratelimit.Limiter, ops.HealthChecker, error) {
	if cfg.RateLimitBackend == "redis" {
		client, err := ratelimit.NewClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		log.Info("redis rate limiter enabled")
		return ratelimit.NewRedis(client), func(context.Context) error {
			return ratelimit.HealthCheck(client)
		}, nil
	}

	mem := ratelimit.NewMemory()
	go mem.StartSweeper(ctx, cfg.SweepInterval, log)
	return mem, nil, nil
}
