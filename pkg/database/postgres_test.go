package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresConfig_Strings(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", User: "coupon", Password: "p@ss", DBName: "coupon_db"}

	assert.Equal(t, "host=db port=5432 user=coupon password=p@ss dbname=coupon_db sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://coupon:p%40ss@db:5432/coupon_db?sslmode=disable", cfg.DatabaseURL())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DatabaseURL(), "sslmode=require")
}
