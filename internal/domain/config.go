package domain

import "time"

// Config holds the complete Kite configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Pipeline thresholds and gates
	Pipeline PipelineConfig `json:"pipeline"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// PipelineConfig holds the decisioning thresholds. Every threshold that gates
// an automated outcome lives here rather than in code so carriers can tune
// them per deployment.
type PipelineConfig struct {
	// AutoApprovalCeiling is the maximum settlement amount eligible for
	// auto-approval, in dollars.
	AutoApprovalCeiling float64 `json:"autoApprovalCeiling"`

	// FraudScoreCeiling is the maximum fraud score eligible for
	// auto-approval.
	FraudScoreCeiling float64 `json:"fraudScoreCeiling"`

	// FraudSIUThreshold is the fraud score at or above which a claim is
	// referred to the Special Investigations Unit.
	FraudSIUThreshold float64 `json:"fraudSIUThreshold"`

	// ConfidenceFloor is the minimum valuation confidence required for
	// automated submission.
	ConfidenceFloor float64 `json:"confidenceFloor"`

	// RecentModelYears defines how new a vehicle must be for sensor-zone
	// damage to block automated processing (ADAS recalibration risk).
	RecentModelYears int `json:"recentModelYears"`

	// NetworkRiskMultiplier scales the fraud aggregate when the claimant
	// belongs to a known fraud network. 1.0 disables the adjustment.
	NetworkRiskMultiplier float64 `json:"networkRiskMultiplier"`

	// RapidPurchaseDays flags claims filed within this many days of
	// policy inception.
	RapidPurchaseDays int `json:"rapidPurchaseDays"`

	// OfferValidityDays is how long a settlement offer stays open.
	OfferValidityDays int `json:"offerValidityDays"`

	// PricingTimeoutSeconds bounds each external pricing source call.
	PricingTimeoutSeconds int `json:"pricingTimeoutSeconds"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"

	// TierEnterprise includes multi-node, SSO, etc.
	TierEnterprise Tier = "enterprise"
)

// DefaultPipelineConfig returns the standard decisioning thresholds.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		AutoApprovalCeiling:   5000,
		FraudScoreCeiling:     25,
		FraudSIUThreshold:     50,
		ConfidenceFloor:       0.6,
		RecentModelYears:      3,
		NetworkRiskMultiplier: 1.0,
		RapidPurchaseDays:     30,
		OfferValidityDays:     30,
		PricingTimeoutSeconds: 5,
	}
}

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier:     TierCommunity,
		Pipeline: DefaultPipelineConfig(),
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kite.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kite",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kite",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
