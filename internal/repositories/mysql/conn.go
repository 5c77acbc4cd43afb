// internal/repositories/mysql/conn.go
// Koneksi MySQL: DSN, pool, ping dengan retry, dan schema work_history.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

type Config struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
	MaxOpen  int
	MaxIdle  int

	PingAttempts int
	PingInterval time.Duration
}

// DSN builds a tcp DSN with parseTime enabled.
func (c Config) DSN() string {
	mc := gomysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Host + ":" + c.Port
	mc.DBName = c.DB
	mc.ParseTime = true
	return mc.FormatDSN()
}

// Open connects, applies the pool settings and retries the ping (default 20 x 3s).
// An explicit dsn wins over the Config fields.
func Open(ctx context.Context, dsn string, c Config, log *zap.Logger) (*sql.DB, error) {
	if dsn == "" {
		dsn = c.DSN()
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if c.MaxOpen > 0 {
		db.SetMaxOpenConns(c.MaxOpen)
	}
	if c.MaxIdle > 0 {
		db.SetMaxIdleConns(c.MaxIdle)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	attempts := c.PingAttempts
	if attempts <= 0 {
		attempts = 20
	}
	interval := c.PingInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}

	var pingErr error
	for i := 0; i < attempts; i++ {
		if pingErr = db.PingContext(ctx); pingErr == nil {
			return db, nil
		}
		log.Warn("ping mysql failed", zap.Int("try", i+1), zap.Error(pingErr))
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	db.Close()
	return nil, fmt.Errorf("mysql not ready after %d tries: %w", attempts, pingErr)
}

const schema = `
CREATE TABLE IF NOT EXISTS work_history (
	id                BIGINT AUTO_INCREMENT PRIMARY KEY,
	batch_id          VARCHAR(64)  NOT NULL,
	row_no            INT          NOT NULL,
	created_at        BIGINT       NOT NULL,
	work_year         INT          NOT NULL DEFAULT 0,
	eff_work_center   VARCHAR(128) NOT NULL DEFAULT '',
	work_date         VARCHAR(64)  NOT NULL DEFAULT '',
	job_id            VARCHAR(64)  NOT NULL DEFAULT '',
	job_number        VARCHAR(64)  NOT NULL DEFAULT '',
	work_order_number VARCHAR(64)  NOT NULL DEFAULT '',
	operation_number  VARCHAR(32)  NOT NULL DEFAULT '',
	part_id           VARCHAR(64)  NOT NULL DEFAULT '',
	part_name         VARCHAR(255) NOT NULL DEFAULT '',
	work_center       VARCHAR(128) NOT NULL DEFAULT '',
	oper_work_center  VARCHAR(128) NOT NULL DEFAULT '',
	company_name      VARCHAR(255) NOT NULL DEFAULT '',
	customer_name     VARCHAR(255) NOT NULL DEFAULT '',
	task_description  VARCHAR(512) NOT NULL DEFAULT '',
	oper_short_text   VARCHAR(512) NOT NULL DEFAULT '',
	planned_hours     VARCHAR(32)  NOT NULL DEFAULT '',
	actual_hours      VARCHAR(32)  NOT NULL DEFAULT '',
	labor_rate        VARCHAR(32)  NOT NULL DEFAULT '',
	notes             TEXT         NOT NULL,
	KEY idx_wh_year (work_year),
	KEY idx_wh_batch (batch_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

// Migrate creates the work_history table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate work_history: %w", err)
	}
	return nil
}
