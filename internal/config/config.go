package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	Assets   AssetConfig
	Library  LibraryConfig
	Cron     CronConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // mysql | postgres
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string // postgres only
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// AssetConfig holds asset lifecycle settings.
// Returned assets go to the holding location unless the caller names one.
type AssetConfig struct {
	HoldingDepartmentID uint
	HoldingRoomID       uint
}

// LibraryConfig holds loan settings
type LibraryConfig struct {
	DefaultLoanDays int
	MaxLoanDays     int
}

// CronConfig holds schedules for background jobs (robfig/cron spec format)
type CronConfig struct {
	Enabled          bool
	OverdueSpec      string
	AuditSpec        string
	TokenCleanupSpec string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	dbConfig := loadDatabaseConfig(appMode)
	if dbConfig.Driver != "mysql" && dbConfig.Driver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mysql' or 'postgres')", dbConfig.Driver)
	}

	library := loadLibraryConfig()
	if library.DefaultLoanDays < 1 || library.MaxLoanDays < library.DefaultLoanDays {
		return nil, fmt.Errorf("invalid loan days: default %d, max %d", library.DefaultLoanDays, library.MaxLoanDays)
	}

	// Build config based on APP_MODE
	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: dbConfig,
		JWT:      loadJWTConfig(appMode),
		Cookie:   loadCookieConfig(appMode),
		Assets:   loadAssetConfig(),
		Library:  library,
		Cron:     loadCronConfig(),
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)
	driver := strings.ToLower(strings.TrimSpace(getEnv("DB_DRIVER", "mysql")))

	defaultPort := "3306"
	if driver == "postgres" {
		defaultPort = "5432"
	}

	return DatabaseConfig{
		Driver:   driver,
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", defaultPort),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "schoolhub"),
		SSLMode:  getEnv(prefix+"DB_SSLMODE", "disable"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "15"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := modePrefix(mode)

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// loadAssetConfig loads the holding location; 0 means not configured
func loadAssetConfig() AssetConfig {
	return AssetConfig{
		HoldingDepartmentID: getEnvUint("HOLDING_DEPARTMENT_ID", 0),
		HoldingRoomID:       getEnvUint("HOLDING_ROOM_ID", 0),
	}
}

// loadLibraryConfig loads loan period limits
func loadLibraryConfig() LibraryConfig {
	defaultDays, _ := strconv.Atoi(getEnv("LOAN_DEFAULT_DAYS", "14"))
	maxDays, _ := strconv.Atoi(getEnv("LOAN_MAX_DAYS", "60"))

	return LibraryConfig{
		DefaultLoanDays: defaultDays,
		MaxLoanDays:     maxDays,
	}
}

// loadCronConfig loads background job schedules
func loadCronConfig() CronConfig {
	enabled, _ := strconv.ParseBool(getEnv("CRON_ENABLED", "true"))

	return CronConfig{
		Enabled:          enabled,
		OverdueSpec:      getEnv("CRON_OVERDUE_SPEC", "30 8 * * *"),
		AuditSpec:        getEnv("CRON_AUDIT_SPEC", "0 * * * *"),
		TokenCleanupSpec: getEnv("CRON_TOKEN_CLEANUP_SPEC", "0 3 * * *"),
	}
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvUint gets an unsigned integer environment variable, falling back on parse errors
func getEnvUint(key string, defaultValue uint) uint {
	v, err := strconv.ParseUint(getEnv(key, ""), 10, 32)
	if err != nil {
		return defaultValue
	}
	return uint(v)
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://library.school.local"
	}
	return origins
}
