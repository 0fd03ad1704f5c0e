package config

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMetadataDSN(t *testing.T) {
	cfg := defaults()
	cfg.DBUser = "admin"
	cfg.DBPass = "p@ss:word/1"
	cfg.DBHost = "meta.internal"
	cfg.DBPort = 3307

	parsed, err := mysqldriver.ParseDSN(cfg.MetadataDSN())
	require.NoError(t, err)
	assert.Equal(t, "admin", parsed.User)
	assert.Equal(t, "p@ss:word/1", parsed.Passwd)
	assert.Equal(t, "meta.internal:3307", parsed.Addr)
	assert.Equal(t, "dbadmin", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, time.UTC, parsed.Loc)
	assert.Equal(t, 10*time.Second, parsed.Timeout)
	assert.Equal(t, "utf8mb4", parsed.Params["charset"])
}

func TestPoolSettingsFromEnv(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "40")
	t.Setenv("DB_MAX_IDLE_CONNS", "8")
	t.Setenv("DB_CONN_MAX_LIFETIME", "15m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "90")

	cfg := defaults()
	applyEnv(&cfg)

	assert.Equal(t, PoolSettings{
		MaxOpenConns:    40,
		MaxIdleConns:    8,
		ConnMaxLifetime: 15 * time.Minute,
		ConnMaxIdleTime: 90 * time.Second,
	}, cfg.Pool())
}

func TestValidateRejectsIdleAboveOpen(t *testing.T) {
	cfg := defaults()
	cfg.PrivateKey = "k"
	cfg.JWTSecret = "s"
	require.NoError(t, cfg.Validate())

	cfg.DBMaxOpenConns = 4
	cfg.DBMaxIdleConns = 10
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MAX_IDLE_CONNS")

	// Zero means unlimited open connections.
	cfg.DBMaxOpenConns = 0
	assert.NoError(t, cfg.Validate())
}

func TestApplyPool(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, applyPool(db, PoolSettings{MaxOpenConns: 7, MaxIdleConns: 2, ConnMaxLifetime: time.Minute}))
	assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, gormLogLevel("DEBUG"))
	assert.Equal(t, gormlogger.Error, gormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel("INFO"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel(""))
}
