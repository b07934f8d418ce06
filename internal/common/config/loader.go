package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendZeebe = "zeebe"
	BackendAsynq = "asynq"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on
// top and lets environment variables override any key.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile reads a single config file, used by tools and tests.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from their conventional env names when
// the YAML left them blank.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Integrations.CoreBank.APIKey, "COREBANK_API_KEY")
	setIfEmpty(&cfg.Integrations.DocVerify.APIKey, "DOCVERIFY_API_KEY")
	setIfEmpty(&cfg.Integrations.DocVerify.WebhookSecret, "DOCVERIFY_WEBHOOK_SECRET")
	setIfEmpty(&cfg.Integrations.Keycloak.ClientSecret, "KEYCLOAK_CLIENT_SECRET")
}

func setIfEmpty(field *string, envName string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envName); val != "" {
		*field = val
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.AuditIndex == "" {
		cfg.Database.Elasticsearch.AuditIndex = "onboarding-audit"
	}

	if cfg.Dispatch.Backend == "" {
		cfg.Dispatch.Backend = BackendZeebe
	}
	if cfg.Dispatch.Queue == "" {
		cfg.Dispatch.Queue = "onboarding"
	}
	if cfg.Dispatch.Concurrency == 0 {
		cfg.Dispatch.Concurrency = 10
	}
	if cfg.Dispatch.MessageTTL == 0 {
		cfg.Dispatch.MessageTTL = 3600000
	}
	if cfg.Dispatch.WaitTimeout == 0 {
		cfg.Dispatch.WaitTimeout = 60000
	}

	if cfg.Onboarding.AdminApprovalRequired == nil {
		cfg.Onboarding.AdminApprovalRequired = map[string]bool{}
	}
	if cfg.Onboarding.AdminApprovalSteps == 0 {
		cfg.Onboarding.AdminApprovalSteps = 2
	}
	if cfg.Onboarding.LockTimeout == 0 {
		cfg.Onboarding.LockTimeout = 5000
	}
	if cfg.Onboarding.SettingsKey == "" {
		cfg.Onboarding.SettingsKey = "onboarding:settings"
	}
	if cfg.Onboarding.SubscriptionCacheTTL == 0 {
		cfg.Onboarding.SubscriptionCacheTTL = 300
	}

	if cfg.Integrations.CoreBank.Timeout == 0 {
		cfg.Integrations.CoreBank.Timeout = 15000
	}
	if cfg.Integrations.DocVerify.Timeout == 0 {
		cfg.Integrations.DocVerify.Timeout = 15000
	}
	if cfg.Integrations.Keycloak.AdminRole == "" {
		cfg.Integrations.Keycloak.AdminRole = "onboarding-admin"
	}

	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Dispatch.Backend {
	case BackendZeebe:
		if cfg.Camunda.BrokerAddress == "" {
			return fmt.Errorf("camunda.broker_address is required for the zeebe dispatch backend")
		}
	case BackendAsynq:
	default:
		return fmt.Errorf("dispatch.backend must be %q or %q, got %q", BackendZeebe, BackendAsynq, cfg.Dispatch.Backend)
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Integrations.CoreBank.BaseURL == "" {
		return fmt.Errorf("integrations.corebank.base_url is required")
	}
	if cfg.Onboarding.AdminApprovalSteps != 1 && cfg.Onboarding.AdminApprovalSteps != 2 {
		return fmt.Errorf("onboarding.admin_approval_steps must be 1 or 2")
	}
	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
