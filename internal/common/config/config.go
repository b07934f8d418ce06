package config

import "fmt"

// Config is the root configuration for the onboarding workers process.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Dispatch     DispatchConfig          `mapstructure:"dispatch"`
	Onboarding   OnboardingConfig        `mapstructure:"onboarding"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	HTTP         HTTPConfig              `mapstructure:"http"`
	Tracing      TracingConfig           `mapstructure:"tracing"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	URL        string   `mapstructure:"url"`
	AuditIndex string   `mapstructure:"audit_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DispatchConfig selects the carrier for asynchronous onboarding tasks.
type DispatchConfig struct {
	Backend     string            `mapstructure:"backend"` // zeebe | asynq
	Queue       string            `mapstructure:"queue"`
	Concurrency int               `mapstructure:"concurrency"`
	MessageTTL  int               `mapstructure:"message_ttl"` // milliseconds
	CatalogPath string            `mapstructure:"catalog_path"`
	ProcessIDs  map[string]string `mapstructure:"process_ids"`
	WaitTimeout int               `mapstructure:"wait_timeout"` // milliseconds
}

// OnboardingConfig holds the defaults for the dynamic settings snapshot.
// Runtime overrides are read from Redis under SettingsKey.
type OnboardingConfig struct {
	AdminApprovalRequired map[string]bool `mapstructure:"admin_approval_required"`
	AdminApprovalSteps    int             `mapstructure:"admin_approval_steps"`
	LockTimeout           int             `mapstructure:"lock_timeout"` // milliseconds
	SettingsKey           string          `mapstructure:"settings_key"`
	SubscriptionCacheTTL  int             `mapstructure:"subscription_cache_ttl"` // seconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// IntegrationConfig holds outbound service settings.
type IntegrationConfig struct {
	CoreBank struct {
		BaseURL      string `mapstructure:"base_url"`
		APIKey       string `mapstructure:"api_key"`
		Timeout      int    `mapstructure:"timeout"` // milliseconds
		KeyNamespace string `mapstructure:"key_namespace"`
	} `mapstructure:"corebank"`

	DocVerify struct {
		BaseURL       string `mapstructure:"base_url"`
		APIKey        string `mapstructure:"api_key"`
		TemplateID    string `mapstructure:"template_id"`
		WebhookSecret string `mapstructure:"webhook_secret"`
		Timeout       int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"docverify"`

	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		AdminRole    string `mapstructure:"admin_role"`
	} `mapstructure:"keycloak"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
