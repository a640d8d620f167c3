// Package config loads environment-driven settings shared by the service binaries.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string
	Issuer string
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds Redis settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads an optional .env file and returns a viper instance bound to the environment.
// The service name is only used for the default database name.
func Load(service string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", service+"_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_ISSUER", "kilat-"+service)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)

	return v, nil
}

// GetAppEnv returns APP_ENV.
func GetAppEnv(v *viper.Viper) string {
	return v.GetString("APP_ENV")
}

// GetServicePort returns the listen address for key, defaulting to :8000.
func GetServicePort(v *viper.Viper, key string) string {
	port := strings.TrimSpace(v.GetString(key))
	if port == "" {
		port = strings.TrimSpace(v.GetString("PORT"))
	}
	if port == "" {
		return ":8000"
	}
	if !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
		port = ":" + port
	}
	return port
}

// LoadDatabaseConfig reads DB_* keys; nameKey selects the database name key.
func LoadDatabaseConfig(v *viper.Viper, nameKey string) DatabaseConfig {
	return DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		User:     v.GetString("DB_USER"),
		Password: v.GetString("DB_PASSWORD"),
		DBName:   v.GetString(nameKey),
		SSLMode:  v.GetString("DB_SSLMODE"),
	}
}

// LoadJWTConfig reads JWT_* keys.
func LoadJWTConfig(v *viper.Viper) JWTConfig {
	return JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}
}

// LoadKafkaConfig reads KAFKA_* keys. Brokers are comma separated.
func LoadKafkaConfig(v *viper.Viper) KafkaConfig {
	return KafkaConfig{
		Brokers:     SplitCSV(v.GetString("KAFKA_BROKERS")),
		GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
	}
}

// LoadRedisConfig reads REDIS_* keys.
func LoadRedisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Addr:     v.GetString("REDIS_ADDR"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}
}

// SplitCSV splits a comma separated list, dropping blanks.
func SplitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
