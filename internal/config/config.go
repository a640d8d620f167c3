package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/scheduler"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/config"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// ServiceConfig holds all configuration for the coupon service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	DBConfig      config.DatabaseConfig
	JWTConfig     config.JWTConfig
	KafkaConfig   config.KafkaConfig
	RedisConfig   config.RedisConfig
	CORSOrigins   []string
	AccessTTL     time.Duration
	ExpirySpec    string
	FacetCacheTTL time.Duration
	MigrationsDir string
	// StorageDriver is "postgres" or "memory". Memory keeps everything in process.
	StorageDriver string
	// InstanceID identifies this replica as the CloudEvent source so the relay skips its own events.
	InstanceID string
}

// Load reads configuration from environment variables and returns a ServiceConfig.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("coupon")
	if err != nil {
		return nil, err
	}
	setDefaults(v)

	instanceID := v.GetString("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "service-coupon-" + uuid.NewString()[:8]
	}

	driver := strings.ToLower(v.GetString("STORAGE_DRIVER"))
	if driver != StoragePostgres && driver != StorageMemory {
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}

	return &ServiceConfig{
		Port:          config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:        config.GetAppEnv(v),
		DBConfig:      config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:     config.LoadJWTConfig(v),
		KafkaConfig:   config.LoadKafkaConfig(v),
		RedisConfig:   config.LoadRedisConfig(v),
		CORSOrigins:   config.SplitCSV(v.GetString("CORS_ORIGINS")),
		AccessTTL:     v.GetDuration("JWT_ACCESS_TTL"),
		ExpirySpec:    v.GetString("EXPIRY_CRON"),
		FacetCacheTTL: v.GetDuration("FACET_CACHE_TTL"),
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		StorageDriver: driver,
		InstanceID:    instanceID,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("JWT_ACCESS_TTL", "24h")
	v.SetDefault("EXPIRY_CRON", scheduler.DefaultExpirySpec)
	v.SetDefault("FACET_CACHE_TTL", "5m")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
}
