//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/adapter"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/cache"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/repository"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/database"
)

// setupPostgres starts PostgreSQL, applies migrations/ and returns a connected GORM DB.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test_coupon",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:     host,
		Port:     port.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_coupon",
		SSLMode:  "disable",
	}
	logger := zap.NewNop()

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(cfg, logger)
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(cfg.DatabaseURL(), "migrations", logger))
	return db
}

// setupRedis starts Redis and returns a connected client.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err)

	rc, err := cache.NewRedisClient(endpoint, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

// setupKafka starts a single KRaft broker with the issuer topic created.
func setupKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	// confluent-local supports KRaft natively.
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, events.TopicIssuerListChanged)
	return brokers
}

// couponStack wires the application services on the GORM repositories.
type couponStack struct {
	Coupons *application.CouponService
	Issuers *application.IssuerService
	Stats   *application.StatisticsService
	Bus     *events.Bus
}

func setupCouponStack(t *testing.T, db *gorm.DB, facets cache.FacetCache) *couponStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	couponRepo := repository.NewGormCouponRepository(db)
	issuerRepo := repository.NewGormIssuerRepository(db)
	bus := events.NewBus()

	return &couponStack{
		Coupons: application.NewCouponService(couponRepo, issuerRepo, facets, adapter.NewQRCodeRenderer(logger), bus, logger),
		Issuers: application.NewIssuerService(issuerRepo, bus, logger),
		Stats:   application.NewStatisticsService(couponRepo, logger),
		Bus:     bus,
	}
}

func seedCoupons(t *testing.T, svc *application.CouponService, team string, reqs ...application.CouponRequest) []int64 {
	t.Helper()
	ids := make([]int64, len(reqs))
	for i, req := range reqs {
		dto, err := svc.CreateCoupon(context.Background(), team, req)
		require.NoError(t, err)
		ids[i] = dto.ID
	}
	return ids
}

// receiveSignal waits for one signal or fails.
func receiveSignal(t *testing.T, ch <-chan events.Signal, timeout time.Duration) events.Signal {
	t.Helper()
	select {
	case sig, ok := <-ch:
		require.True(t, ok, "signal channel closed")
		return sig
	case <-time.After(timeout):
		t.Fatalf("no signal within %s", timeout)
		return events.Signal{}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(time.Second)
}
