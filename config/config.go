package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds application configuration loaded from environment variables, .env file
// and an optional YAML overlay.
type AppConfig struct {
	// Metadata store config
	DBHost string `yaml:"db_host"`
	DBPort int    `yaml:"db_port"`
	DBUser string `yaml:"db_user"`
	DBPass string `yaml:"-"`
	DBName string `yaml:"db_name"`

	DBMaxOpenConns    int           `yaml:"db_max_open_conns"`
	DBMaxIdleConns    int           `yaml:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `yaml:"db_conn_max_lifetime"`
	DBConnMaxIdleTime time.Duration `yaml:"db_conn_max_idle_time"`
	DBConnectTimeout  time.Duration `yaml:"db_connect_timeout"`

	// Server secret used for credential encryption when master encryption is off
	// and for agent token HMAC. Never read from the YAML overlay.
	PrivateKey string `yaml:"-"`

	// Bounded timeout around every DAO call issued by a row operation
	DAOTimeout time.Duration `yaml:"dao_timeout"`

	// Agent API config
	AgentAPIPath          string        `yaml:"agent_api_path"`
	AgentExecutablePath   string        `yaml:"agent_executable_path"`
	AgentExecutionTimeout time.Duration `yaml:"agent_execution_timeout"`
	AgentMaxRetries       int           `yaml:"agent_max_retries"`
	AgentRetryBaseDelay   time.Duration `yaml:"agent_retry_base_delay"`
	AgentRateLimit        float64       `yaml:"agent_rate_limit"` // commands per second

	// Analytics
	RedisAddr       string `yaml:"redis_addr"`
	AnalyticsStream string `yaml:"analytics_stream"`

	// Demo test connections served from an in-memory MySQL sandbox
	SandboxEnabled  bool   `yaml:"sandbox_enabled"`
	SandboxDatabase string `yaml:"sandbox_database"`

	// HTTP
	Port      string `yaml:"port"`
	JWTSecret string `yaml:"-"`

	// Logging config
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	LogMaxSize    int    `yaml:"log_max_size"` // MB
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAge     int    `yaml:"log_max_age"` // days
	LogCompress   bool   `yaml:"log_compress"`

	// Vault, used only to source PrivateKey
	VaultAddr       string `yaml:"vault_addr"`
	VaultToken      string `yaml:"-"`
	VaultSecretPath string `yaml:"vault_secret_path"`
}

// Cfg is the global application configuration instance.
var Cfg AppConfig

// LoadConfig loads and validates application configuration from .env file and environment variables.
func LoadConfig() error {
	err := godotenv.Load()
	if err != nil {
		// Use standard log here since logger is not initialized yet
		log.Printf("[WARN] .env file not found or cannot be loaded: %v", err)
	} else {
		log.Printf("[INFO] .env file loaded successfully")
	}

	Cfg = defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyYAML(path, &Cfg); err != nil {
			return err
		}
		log.Printf("[INFO] config overlay loaded from %s", path)
	}

	applyEnv(&Cfg)

	if Cfg.PrivateKey == "" && Cfg.VaultAddr != "" && Cfg.VaultToken != "" && Cfg.VaultSecretPath != "" {
		key, err := loadPrivateKeyFromVault(Cfg.VaultAddr, Cfg.VaultToken, Cfg.VaultSecretPath)
		if err != nil {
			return err
		}
		Cfg.PrivateKey = key
	}

	if err := Cfg.Validate(); err != nil {
		return err
	}

	log.Printf("[INFO] Config loaded - DB: %s@%s:%d/%s, LogLevel: %s",
		Cfg.DBUser, Cfg.DBHost, Cfg.DBPort, Cfg.DBName, Cfg.LogLevel)
	log.Printf("[INFO] Agent API config - Path: %s, ExecTimeout: %v, MaxRetries: %d, BaseDelay: %v, RateLimit: %.1f/s",
		Cfg.AgentAPIPath, Cfg.AgentExecutionTimeout, Cfg.AgentMaxRetries, Cfg.AgentRetryBaseDelay, Cfg.AgentRateLimit)
	log.Printf("[INFO] DAO timeout: %v, analytics: %q", Cfg.DAOTimeout, Cfg.RedisAddr)

	return nil
}

func defaults() AppConfig {
	return AppConfig{
		DBHost:                "127.0.0.1",
		DBPort:                3306,
		DBUser:                "root",
		DBName:                "dbadmin",
		DBMaxOpenConns:        25,
		DBMaxIdleConns:        5,
		DBConnMaxLifetime:     30 * time.Minute,
		DBConnMaxIdleTime:     5 * time.Minute,
		DBConnectTimeout:      10 * time.Second,
		DAOTimeout:            30 * time.Second,
		AgentAPIPath:          "/usr/local/bin/dbfAgentAPI",
		AgentExecutablePath:   "/etc/v2/dbf/bin/dbfsqlexecute",
		AgentExecutionTimeout: 120 * time.Second,
		AgentMaxRetries:       5,
		AgentRetryBaseDelay:   2 * time.Second,
		AgentRateLimit:        10,
		AnalyticsStream:       "dbadmin:analytics",
		SandboxDatabase:       "demo",
		Port:                  "8081",
		LogLevel:              "INFO",
		LogFile:               "/var/log/dbadmin/dbadminapi.log",
		LogMaxSize:            10,
		LogMaxBackups:         3,
		LogMaxAge:             28,
		LogCompress:           true,
	}
}

func applyYAML(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv lets environment variables override defaults and the YAML overlay.
func applyEnv(cfg *AppConfig) {
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnvInt("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPass = getEnv("DB_PASS", cfg.DBPass)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.DBMaxOpenConns)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.DBMaxIdleConns)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", cfg.DBConnMaxLifetime)
	cfg.DBConnMaxIdleTime = getEnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.DBConnMaxIdleTime)
	cfg.DBConnectTimeout = getEnvDuration("DB_CONNECT_TIMEOUT", cfg.DBConnectTimeout)

	cfg.PrivateKey = getEnv("PRIVATE_KEY", cfg.PrivateKey)
	cfg.DAOTimeout = getEnvDuration("DAO_TIMEOUT", cfg.DAOTimeout)

	cfg.AgentAPIPath = getEnv("AGENT_API_PATH", cfg.AgentAPIPath)
	cfg.AgentExecutablePath = getEnv("AGENT_EXECUTABLE_PATH", cfg.AgentExecutablePath)
	cfg.AgentExecutionTimeout = getEnvDuration("AGENT_EXECUTION_TIMEOUT", cfg.AgentExecutionTimeout)
	cfg.AgentMaxRetries = getEnvInt("AGENT_MAX_RETRIES", cfg.AgentMaxRetries)
	cfg.AgentRetryBaseDelay = getEnvDuration("AGENT_RETRY_BASE_DELAY", cfg.AgentRetryBaseDelay)
	cfg.AgentRateLimit = getEnvFloat("AGENT_RATE_LIMIT", cfg.AgentRateLimit)

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.AnalyticsStream = getEnv("ANALYTICS_STREAM", cfg.AnalyticsStream)

	cfg.SandboxEnabled = getEnvBool("SANDBOX_ENABLED", cfg.SandboxEnabled)
	cfg.SandboxDatabase = getEnv("SANDBOX_DATABASE", cfg.SandboxDatabase)

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.LogMaxSize = getEnvInt("LOG_MAX_SIZE", cfg.LogMaxSize)
	cfg.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", cfg.LogMaxBackups)
	cfg.LogMaxAge = getEnvInt("LOG_MAX_AGE", cfg.LogMaxAge)
	cfg.LogCompress = getEnvBool("LOG_COMPRESS", cfg.LogCompress)

	cfg.VaultAddr = getEnv("VAULT_ADDR", cfg.VaultAddr)
	cfg.VaultToken = getEnv("VAULT_TOKEN", cfg.VaultToken)
	cfg.VaultSecretPath = getEnv("VAULT_SECRET_PATH", cfg.VaultSecretPath)
}

// Validate reports configuration the service cannot start without.
func (c AppConfig) Validate() error {
	var missing []string
	if c.PrivateKey == "" {
		missing = append(missing, "PRIVATE_KEY")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.DAOTimeout <= 0 {
		return fmt.Errorf("DAO_TIMEOUT must be positive, got %v", c.DAOTimeout)
	}
	if c.DBMaxOpenConns > 0 && c.DBMaxIdleConns > c.DBMaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS (%d) exceeds DB_MAX_OPEN_CONNS (%d)", c.DBMaxIdleConns, c.DBMaxOpenConns)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go duration strings ("45s", "2m") or a bare number of seconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
