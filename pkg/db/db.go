// pkg/db/db.go
// Helper koneksi store work-history: MySQL bila dikonfigurasi, selain itu SQLite embedded.

package db

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/config"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/mysql"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlite"
)

const (
	KindMySQL  = "mysql"
	KindSQLite = "sqlite"
)

// MySQLConfig maps the mysql config section onto the connection settings.
func MySQLConfig(c *config.Config) mysql.Config {
	return mysql.Config{
		Host:     c.MySQL.Host,
		Port:     c.MySQL.Port,
		DB:       c.MySQL.DB,
		User:     c.MySQL.User,
		Password: c.MySQL.Password,
		MaxOpen:  c.MySQL.MaxOpen,
		MaxIdle:  c.MySQL.MaxIdle,
	}
}

// Open connects to the configured store and makes sure the schema exists.
func Open(ctx context.Context, c *config.Config, log *zap.Logger) (*sql.DB, string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !c.UseMySQL() {
		db, err := sqlite.Open(ctx, c.SQLite.Path)
		if err != nil {
			return nil, "", err
		}
		log.Info("store ready", zap.String("kind", KindSQLite), zap.String("path", c.SQLite.Path))
		return db, KindSQLite, nil
	}

	db, err := mysql.Open(ctx, c.MySQL.DSN, MySQLConfig(c), log)
	if err != nil {
		return nil, "", err
	}
	if err := mysql.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("migrate: %w", err)
	}
	log.Info("store ready", zap.String("kind", KindMySQL))
	return db, KindMySQL, nil
}
