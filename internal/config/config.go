package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server          ServerConfig
	BusinessCentral BusinessCentralConfig
	Graph           GraphConfig
	AI              AIConfig
	MongoDB         MongoDBConfig
	Intake          IntakeConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// BusinessCentralConfig contains credentials and environment selection for
// the Business Central APIs. The environment name is carried here and passed
// into the client constructor; it is never process-global state.
type BusinessCentralConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Environment  string
	CompanyName  string
	APIPublisher string
	APIGroup     string
}

// GraphConfig contains credentials for the Microsoft Graph OneDrive API and
// the location of the order-document inbox.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	DriveID      string
	InboxFolder  string
}

// AIConfig holds settings for LLM providers.
type AIConfig struct {
	AnthropicKey string
}

// MongoDBConfig holds settings for the allocation audit store.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// IntakeConfig holds scheduler-related settings for inbox polling.
type IntakeConfig struct {
	CronSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		BusinessCentral: BusinessCentralConfig{
			TenantID:     os.Getenv("BC_TENANT_ID"),
			ClientID:     os.Getenv("BC_CLIENT_ID"),
			ClientSecret: os.Getenv("BC_CLIENT_SECRET"),
			Environment:  os.Getenv("BC_ENVIRONMENT"),
			CompanyName:  os.Getenv("BC_COMPANY_NAME"),
			APIPublisher: getenvWithDefault("BC_API_PUBLISHER", "warehouseExt"),
			APIGroup:     getenvWithDefault("BC_API_GROUP", "lotReservation"),
		},
		Graph: GraphConfig{
			TenantID:     os.Getenv("GRAPH_TENANT_ID"),
			ClientID:     os.Getenv("GRAPH_CLIENT_ID"),
			ClientSecret: os.Getenv("GRAPH_CLIENT_SECRET"),
			DriveID:      os.Getenv("GRAPH_DRIVE_ID"),
			InboxFolder:  getenvWithDefault("GRAPH_INBOX_FOLDER", "SalesOrders/Inbox"),
		},
		AI: AIConfig{
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "lotpilot"),
		},
		Intake: IntakeConfig{
			CronSchedule: getenvWithDefault("INTAKE_CRON_SCHEDULE", "*/10 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated. Graph
// and Anthropic credentials are optional; the document intake pipeline is
// disabled when they are absent.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.BusinessCentral.TenantID == "":
		return errors.New("BC_TENANT_ID must be provided")
	case c.BusinessCentral.ClientID == "":
		return errors.New("BC_CLIENT_ID must be provided")
	case c.BusinessCentral.ClientSecret == "":
		return errors.New("BC_CLIENT_SECRET must be provided")
	case c.BusinessCentral.Environment == "":
		return errors.New("BC_ENVIRONMENT must be provided")
	case c.BusinessCentral.CompanyName == "":
		return errors.New("BC_COMPANY_NAME must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must not be empty")
	}
	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must not be empty")
	}

	if c.Intake.CronSchedule == "" {
		return errors.New("INTAKE_CRON_SCHEDULE must be provided")
	}

	return nil
}

// IntakeEnabled reports whether the OneDrive intake pipeline has everything
// it needs to run.
func (c *Config) IntakeEnabled() bool {
	g := c.Graph
	return g.TenantID != "" && g.ClientID != "" && g.ClientSecret != "" && g.DriveID != "" && c.AI.AnthropicKey != ""
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
