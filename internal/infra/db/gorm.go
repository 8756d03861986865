package db

import (
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
// 接続プールはpgxのdatabase/sqlドライバで作り、gormに渡す
func Connect(cfg config.Config) (*gorm.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresSSLMode,
		)
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open pgx")
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return Open(sqlDB)
}

// Open は既存の*sql.DBからgormを作る（テストではsqlmockを渡す）
func Open(sqlDB *sql.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open gorm")
	}
	return gdb, nil
}

// Migrate はこのサービスが使うテーブルを作る
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&model.KVEntry{},
		&model.CheckoutLog{},
	)
}
