package config

import (
	"fmt"
	"time"

	"tuina_clinic_backend/pkg/utils"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	App      AppConfig
	Auth     AuthConfig
	Sweeper  SweeperConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
	RunMigrations  bool
}

// AppConfig holds application configuration
type AppConfig struct {
	Environment    string
	Port           string
	LogLevel       string
	AllowedOrigins []string
	Timezone       string
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	JWTSecret string
	JWTExpiry time.Duration
}

// SweeperConfig controls the expiry sweeper job
type SweeperConfig struct {
	Enabled bool
	Cron    string
}

// Load loads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	envFileLoaded := godotenv.Load() == nil

	cfg := &Config{
		Database: DatabaseConfig{
			Host:           utils.Getenv("DB_HOST", "localhost"),
			Port:           utils.Getenv("DB_PORT", "5432"),
			User:           utils.Getenv("DB_USER", "tuina_user"),
			Password:       utils.Getenv("DB_PASSWORD", ""),
			DBName:         utils.Getenv("DB_NAME", "tuina_clinic_db"),
			SSLMode:        utils.Getenv("DB_SSLMODE", "disable"),
			MigrationsPath: utils.Getenv("MIGRATIONS_PATH", "migrations"),
			RunMigrations:  utils.GetenvBool("RUN_MIGRATIONS", true),
		},
		App: AppConfig{
			Environment:    utils.Getenv("APP_ENV", "development"),
			Port:           utils.Getenv("PORT", "8080"),
			LogLevel:       utils.Getenv("LOG_LEVEL", "info"),
			AllowedOrigins: utils.GetenvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			Timezone:       utils.Getenv("CLINIC_TIMEZONE", "Asia/Shanghai"),
		},
		Auth: AuthConfig{
			JWTSecret: utils.Getenv("JWT_SECRET", ""),
			JWTExpiry: time.Duration(utils.GetenvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		},
		Sweeper: SweeperConfig{
			Enabled: utils.GetenvBool("EXPIRY_SWEEP_ENABLED", true),
			Cron:    utils.Getenv("EXPIRY_SWEEP_CRON", "5 0 * * *"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	utils.LogDebug("Configuration loaded", map[string]interface{}{"env_file": envFileLoaded})
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET must be set outside development")
		}
		c.Auth.JWTSecret = "tuina-clinic-dev-secret"
	}
	if c.Auth.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	return nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// Location returns the clinic's time zone, used for calendar-day comparisons.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
