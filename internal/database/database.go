package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Raihan-Sharif/finmate-sub005/internal/config"
	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// TranslateError turns unique violations into gorm.ErrDuplicatedKey,
		// which the audit store relies on for the per-job run lock.
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

func Migrate() error {
	if err := DB.AutoMigrate(
		&models.User{},
		&models.SubscriptionPlan{},
		&models.ObligationTemplate{},
		&models.LedgerEntry{},
		&models.SubscriptionPayment{},
		&models.UserSubscription{},
		&models.SubscriptionHistory{},
		&models.CronJobLog{},
		&models.SystemLog{},
	); err != nil {
		return err
	}

	// One running entry per job name. This partial unique index is the
	// per-job lock: TryStart's insert collides instead of racing.
	return DB.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_cron_job_logs_one_running
		 ON cron_job_logs (job_name) WHERE status = 'running'`,
	).Error
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
