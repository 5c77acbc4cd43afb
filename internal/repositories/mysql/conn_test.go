package mysql_test

import (
	"context"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/mysql"
)

func TestDSN(t *testing.T) {
	c := mysql.Config{Host: "db", Port: "3306", DB: "wh", User: "u", Password: "p@ss"}
	parsed, err := gomysql.ParseDSN(c.DSN())
	require.NoError(t, err)
	assert.Equal(t, "u", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "wh", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}

func TestOpenGivesUpAfterRetries(t *testing.T) {
	c := mysql.Config{Host: "127.0.0.1", Port: "1", DB: "wh", User: "u", PingAttempts: 2, PingInterval: time.Millisecond}
	_, err := mysql.Open(context.Background(), "", c, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready after 2 tries")
}
