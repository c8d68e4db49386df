package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ehr/hl7ingest/internal/domain/patient"
)

var (
	// ErrPasswordMissing is returned by Validate when PATIENT_APP_DB_PASSWORD
	// is unset or empty.
	ErrPasswordMissing = errors.New("PATIENT_APP_DB_PASSWORD is required")

	// ErrInvalid wraps every other validation failure.
	ErrInvalid = errors.New("invalid configuration")
)

// Supported DB_DRIVER values.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

type Config struct {
	DBPassword      string        `mapstructure:"PATIENT_APP_DB_PASSWORD"`
	InputFolder     string        `mapstructure:"HL7_FOLDER_PATH"`
	ClearBeforeLoad bool          `mapstructure:"CLEAR_BEFORE_LOAD"`
	CreateInputDir  bool          `mapstructure:"CREATE_INPUT_DIR"`
	DBDriver        string        `mapstructure:"DB_DRIVER"`
	DBHost          string        `mapstructure:"DB_HOST"`
	DBPort          int           `mapstructure:"DB_PORT"`
	DBUser          string        `mapstructure:"DB_USER"`
	DBName          string        `mapstructure:"DB_NAME"`
	DBSSLMode       string        `mapstructure:"DB_SSLMODE"`
	DBTable         string        `mapstructure:"DB_TABLE"`
	SQLitePath      string        `mapstructure:"SQLITE_PATH"`
	QueryTimeout    time.Duration `mapstructure:"DB_QUERY_TIMEOUT"`
	Env             string        `mapstructure:"ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
}

var keys = []string{
	"PATIENT_APP_DB_PASSWORD",
	"HL7_FOLDER_PATH",
	"CLEAR_BEFORE_LOAD",
	"CREATE_INPUT_DIR",
	"DB_DRIVER",
	"DB_HOST",
	"DB_PORT",
	"DB_USER",
	"DB_NAME",
	"DB_SSLMODE",
	"DB_TABLE",
	"SQLITE_PATH",
	"DB_QUERY_TIMEOUT",
	"ENV",
	"LOG_LEVEL",
}

// Load reads the environment and an optional .env file. It applies defaults
// but does not validate; call Validate before touching any resource.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("HL7_FOLDER_PATH", "./HL7_Messages")
	v.SetDefault("CLEAR_BEFORE_LOAD", false)
	v.SetDefault("CREATE_INPUT_DIR", false)
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "PatientAppUser")
	v.SetDefault("DB_NAME", "XEPDB1")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TABLE", "PATIENTS")
	v.SetDefault("SQLITE_PATH", "patients.db")
	v.SetDefault("DB_QUERY_TIMEOUT", "10s")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the configuration before any file or database is touched.
// A missing password is reported as ErrPasswordMissing, everything else as
// ErrInvalid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DBPassword) == "" {
		return ErrPasswordMissing
	}

	switch c.DBDriver {
	case DriverPostgres, DriverMySQL:
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST is required for driver %q", ErrInvalid, c.DBDriver)
		}
		if c.DBPort <= 0 || c.DBPort > 65535 {
			return fmt.Errorf("%w: DB_PORT %d out of range", ErrInvalid, c.DBPort)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: SQLITE_PATH is required for driver %q", ErrInvalid, c.DBDriver)
		}
	default:
		return fmt.Errorf("%w: DB_DRIVER must be %q, %q or %q, got %q",
			ErrInvalid, DriverPostgres, DriverSQLite, DriverMySQL, c.DBDriver)
	}

	if err := patient.ValidateTable(c.DBTable); err != nil {
		return fmt.Errorf("%w: DB_TABLE: %v", ErrInvalid, err)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("%w: DB_QUERY_TIMEOUT must be positive, got %s", ErrInvalid, c.QueryTimeout)
	}
	if c.InputFolder == "" {
		return fmt.Errorf("%w: HL7_FOLDER_PATH is empty", ErrInvalid)
	}
	return nil
}
