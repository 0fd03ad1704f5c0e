package config

import (
	"fmt"
	"time"

	"dbadminapi/pkg/logger"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the global GORM handle on the metadata store. Connection settings,
// table settings, widgets, audit logs and agents all live there.
var DB *gorm.DB

// PoolSettings bounds the metadata store's database/sql pool.
type PoolSettings struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Pool returns the pool limits configured for the metadata store.
func (c AppConfig) Pool() PoolSettings {
	return PoolSettings{
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		ConnMaxIdleTime: c.DBConnMaxIdleTime,
	}
}

// MetadataDSN builds the MySQL DSN for the metadata store. Timestamps are
// parsed into time.Time and stored in UTC.
func (c AppConfig) MetadataDSN() string {
	dc := mysqldriver.NewConfig()
	dc.User = c.DBUser
	dc.Passwd = c.DBPass
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", c.DBHost, c.DBPort)
	dc.DBName = c.DBName
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Timeout = c.DBConnectTimeout
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

// gormLogLevel keeps GORM quiet unless the service itself logs at debug.
func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "DEBUG", "debug":
		return gormlogger.Info
	case "ERROR", "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

// ConnectDB opens the metadata store and applies the configured pool limits.
func ConnectDB() error {
	logger.Infof("Connecting to metadata store %s@%s:%d/%s", Cfg.DBUser, Cfg.DBHost, Cfg.DBPort, Cfg.DBName)

	db, err := gorm.Open(mysql.Open(Cfg.MetadataDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(Cfg.LogLevel)),
	})
	if err != nil {
		logger.Errorf("GORM connection failed: %v", err)
		return err
	}
	if err := applyPool(db, Cfg.Pool()); err != nil {
		logger.Errorf("metadata store pool setup failed: %v", err)
		return err
	}
	logger.Infof("GORM connected to %s (max open %d, max idle %d, lifetime %v)",
		Cfg.DBName, Cfg.DBMaxOpenConns, Cfg.DBMaxIdleConns, Cfg.DBConnMaxLifetime)

	DB = db
	return nil
}

func applyPool(db *gorm.DB, p PoolSettings) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("metadata store handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(p.MaxOpenConns)
	sqlDB.SetMaxIdleConns(p.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(p.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(p.ConnMaxIdleTime)
	return nil
}
