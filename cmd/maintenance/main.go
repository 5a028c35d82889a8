// Command maintenance runs one-off data repairs against the database. The
// in-process sweeper handles recurring cleanup; these are the manual tools
// operators reach for.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vibesocial/backend/internal/config"
	pgInfra "github.com/vibesocial/backend/internal/infrastructure/postgres"
	"github.com/vibesocial/backend/pkg/logger"
	"github.com/vibesocial/backend/repository/postgres"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	zapLogger, err := logger.New(logger.Config{Level: cfg.Logger.Level, Encoding: "console"})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pgInfra.NewPool(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()

	switch os.Args[1] {
	case "reset-cooldown":
		fs := flag.NewFlagSet("reset-cooldown", flag.ExitOnError)
		email := fs.String("email", "", "reset only this account (default: all)")
		fs.Parse(os.Args[2:])
		err = resetCooldown(ctx, pool, *email, zapLogger)
	case "fix-account-status":
		err = fixAccountStatus(ctx, pool, zapLogger)
	case "purge-notifications":
		fs := flag.NewFlagSet("purge-notifications", flag.ExitOnError)
		keep := fs.Duration("keep", 30*24*time.Hour, "retention window for deleted notifications")
		fs.Parse(os.Args[2:])
		err = purgeNotifications(ctx, pool, *keep, zapLogger)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		zapLogger.Fatal("maintenance command failed", zap.Error(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: maintenance <command> [flags]

commands:
  reset-cooldown       clear email-verification resend cooldowns
  fix-account-status   promote verified accounts stuck in pending
  purge-notifications  hard-delete old soft-deleted notifications`)
}

// resetCooldown clears the verification-resend throttle so users can
// request a fresh email immediately.
func resetCooldown(ctx context.Context, pool *pgxpool.Pool, email string, logger *zap.Logger) error {
	query := `
	UPDATE users SET verification_sent_at = NULL, verification_attempts = 0
	WHERE verification_sent_at IS NOT NULL
	`
	args := []interface{}{}
	if email != "" {
		query += ` AND email = $1`
		args = append(args, email)
	}
	tag, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	logger.Info("verification cooldowns cleared", zap.Int64("accounts", tag.RowsAffected()))
	return nil
}

// fixAccountStatus repairs accounts that confirmed their email before the
// status transition existed and remained pending.
func fixAccountStatus(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	const query = `
	UPDATE users SET account_status = 'active', updated_at = NOW()
	WHERE is_verified = TRUE AND account_status = 'pending'
	`
	tag, err := pool.Exec(ctx, query)
	if err != nil {
		return err
	}
	logger.Info("pending verified accounts activated", zap.Int64("accounts", tag.RowsAffected()))
	return nil
}

func purgeNotifications(ctx context.Context, pool *pgxpool.Pool, keep time.Duration, logger *zap.Logger) error {
	repo := postgres.NewNotificationRepository(pool)
	purged, err := repo.PurgeDeleted(ctx, time.Now().Add(-keep))
	if err != nil {
		return err
	}
	logger.Info("deleted notifications purged", zap.Int64("count", purged))
	return nil
}
