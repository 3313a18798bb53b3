package config

// Config holds all application configuration loaded from environment variables
// via github.com/caarlos0/env struct tags.
type Config struct {
	// Server configuration
	APIPort     int    `env:"API_PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9090"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"stillmind"`

	// Redis configuration
	RedisHost         string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisMaxRetries   int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int    `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`

	// Content configuration
	CatalogPath    string `env:"CATALOG_PATH" envDefault:"config/catalog.yaml"`
	ContentBaseURL string `env:"CONTENT_BASE_URL"`
	AssetBaseURL   string `env:"ASSET_BASE_URL" envDefault:"https://storage.googleapis.com"`

	// Purchase backend configuration. Unset base URL means the service runs
	// against the demo purchase client.
	PurchaseBaseURL     string `env:"PURCHASE_BASE_URL"`
	PurchaseAPIKey      string `env:"PURCHASE_API_KEY"`
	DemoPurchaseDelayMs int    `env:"DEMO_PURCHASE_DELAY_MS" envDefault:"1500"`

	// Timezone used to assign habit entries to calendar days.
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`

	// Telemetry configuration
	OtelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
	OtelEndpoint string `env:"OTEL_EXPORTER_ZIPKIN_ENDPOINT"`
}
