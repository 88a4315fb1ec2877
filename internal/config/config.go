// Package config loads the server configuration.
//
// Values are layered: defaults, then the YAML file, then a .env file, then
// the environment. Later layers win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read if no file is given explicitly and it exists.
const DefaultFile = "tally.yaml"

type Config struct {
	APIURL string `yaml:"api_url"`
	Port   string `yaml:"port"`

	// SQLite is used unless DBHost is set
	DBDSN      string `yaml:"db_dsn"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBSSLMode  string `yaml:"db_sslmode"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	// Attachments are disabled if empty
	AttachmentDir     string `yaml:"attachment_dir"`
	AttachmentMaxSize int64  `yaml:"attachment_max_size"` // bytes

	// Alert events are only published if AMQPURL is set
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	CORSAllowOrigins []string `yaml:"cors_allow_origins"`
	EnablePprof      bool     `yaml:"enable_pprof"`
	LogFormat        string   `yaml:"log_format"`
	GinMode          string   `yaml:"gin_mode"`
}

func Defaults() Config {
	return Config{
		APIURL:            "http://localhost:8080",
		Port:              "8080",
		DBDSN:             "data/tally.db",
		DBPort:            "5432",
		DBSSLMode:         "disable",
		TokenTTL:          24 * time.Hour,
		AttachmentMaxSize: 10 << 20,
		AMQPExchange:      "tally",
		AMQPQueue:         "alerts",
		GinMode:           "release",
	}
}

// Load reads the configuration. path may be empty, then DefaultFile is
// used if it exists.
func Load(path string) (Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		log.Debug().Str("file", path).Msg("Config")
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Existing environment variables take precedence over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"API_URL", &c.APIURL},
		{"PORT", &c.Port},
		{"DB_DSN", &c.DBDSN},
		{"DB_HOST", &c.DBHost},
		{"DB_PORT", &c.DBPort},
		{"DB_USER", &c.DBUser},
		{"DB_PASSWORD", &c.DBPassword},
		{"DB_NAME", &c.DBName},
		{"DB_SSLMODE", &c.DBSSLMode},
		{"JWT_SECRET", &c.JWTSecret},
		{"ATTACHMENT_DIR", &c.AttachmentDir},
		{"AMQP_URL", &c.AMQPURL},
		{"AMQP_EXCHANGE", &c.AMQPExchange},
		{"AMQP_QUEUE", &c.AMQPQueue},
		{"LOG_FORMAT", &c.LogFormat},
		{"GIN_MODE", &c.GinMode},
	}

	for _, s := range strs {
		if v, ok := os.LookupEnv(s.key); ok {
			*s.dst = v
		}
	}

	if v, ok := os.LookupEnv("CORS_ALLOW_ORIGINS"); ok {
		c.CORSAllowOrigins = strings.Fields(v)
	}

	if v, ok := os.LookupEnv("ENABLE_PPROF"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ENABLE_PPROF '%s': must be a boolean", v)
		}
		c.EnablePprof = b
	}

	if v, ok := os.LookupEnv("ATTACHMENT_MAX_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ATTACHMENT_MAX_SIZE '%s': must be a number of bytes", v)
		}
		c.AttachmentMaxSize = n
	}

	if v, ok := os.LookupEnv("TOKEN_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOKEN_TTL '%s': %w", v, err)
		}
		c.TokenTTL = d
	}

	return nil
}

// Postgres reports whether PostgreSQL is configured instead of SQLite.
func (c Config) Postgres() bool {
	return c.DBHost != ""
}

// PostgresDSN returns the connection string for PostgreSQL.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// ValidateDatabase checks the database settings only. It is enough for
// commands that do not serve the API.
func (c Config) ValidateDatabase() error {
	return joinProblems(c.databaseProblems())
}

// Validate checks the whole configuration and reports all problems at once.
func (c Config) Validate() error {
	problems := c.databaseProblems()

	if u, err := url.Parse(c.APIURL); err != nil {
		problems = append(problems, fmt.Sprintf("invalid API URL '%s': %v", c.APIURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		problems = append(problems, fmt.Sprintf("invalid API URL '%s': scheme must be 'http' or 'https'", c.APIURL))
	}

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if len(c.JWTSecret) < 16 {
		problems = append(problems, "JWT secret must be at least 16 characters long")
	}

	if c.TokenTTL <= 0 {
		problems = append(problems, fmt.Sprintf("invalid token TTL %v: must be positive", c.TokenTTL))
	}

	if c.AttachmentMaxSize <= 0 {
		problems = append(problems, fmt.Sprintf("invalid attachment max size %d: must be positive", c.AttachmentMaxSize))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}

		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains([]string{"", "human", "json"}, c.LogFormat) {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'human' or 'json'", c.LogFormat))
	}

	if !slices.Contains([]string{"debug", "release", "test"}, c.GinMode) {
		problems = append(problems, fmt.Sprintf("invalid gin mode '%s': must be one of debug, release, test", c.GinMode))
	}

	return joinProblems(problems)
}

func (c Config) databaseProblems() []string {
	var problems []string

	if !c.Postgres() {
		if c.DBDSN == "" {
			problems = append(problems, "database DSN cannot be empty when using sqlite")
		}
		return problems
	}

	if c.DBUser == "" {
		problems = append(problems, "database user cannot be empty when using postgres")
	}
	if c.DBName == "" {
		problems = append(problems, "database name cannot be empty when using postgres")
	}

	return problems
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
}
