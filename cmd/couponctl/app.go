package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/cache"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/client"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/listing"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/localstore"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/logger"
)

const (
	storeFile   = "file"
	storeRedis  = "redis"
	storeMemory = "memory"
)

// app holds what the commands share. Everything is opened lazily on first use.
type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer

	logger *zap.Logger
	store  localstore.Store
	redis  *redis.Client
	api    *client.Client
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "couponctl",
		Short:         "Browse coupons, edit owners and manage issuers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:8000", "coupon service base URL")
	flags.String("store", storeFile, "local state backend: file, redis or memory")
	flags.String("store-path", "", "state file of the file store (default <user config dir>/couponctl/state.json)")
	flags.String("redis-addr", "localhost:6379", "Redis address of the redis store")
	flags.String("redis-namespace", "couponctl", "key namespace of the redis store")
	flags.String("team", "", "team scope of every request")
	flags.String("bulk-team", "", "team allowed to bulk assign")
	flags.String("kafka-brokers", "", "comma separated brokers for watch --via kafka")
	flags.Bool("debug", false, "log requests and state changes to stderr")
	_ = a.v.BindPFlags(flags)

	a.v.SetEnvPrefix("COUPONCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newCouponsCmd(a),
		newOwnerCmd(a),
		newBulkAssignCmd(a),
		newIssuersCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newProfileCmd(a),
		newStatsCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) init() error {
	a.logger = zap.NewNop()
	if a.v.GetBool("debug") {
		l, err := logger.NewNamed("development", "couponctl")
		if err != nil {
			return err
		}
		a.logger = l
	}
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.logger.Sync()
}

// localStore opens the configured key/value store.
func (a *app) localStore() (localstore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	switch kind := strings.ToLower(a.v.GetString("store")); kind {
	case storeMemory:
		a.store = localstore.NewMemoryStore()
	case storeRedis:
		rc, err := cache.NewRedisClient(a.v.GetString("redis-addr"), "", 0)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		a.redis = rc
		a.store = localstore.NewRedisStore(rc, a.v.GetString("redis-namespace"))
	case storeFile, "":
		path := a.v.GetString("store-path")
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("resolve config dir: %w", err)
			}
			path = filepath.Join(dir, "couponctl", "state.json")
		}
		a.store = localstore.NewFileStore(path)
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
	return a.store, nil
}

func (a *app) session() (*localstore.Session, error) {
	store, err := a.localStore()
	if err != nil {
		return nil, err
	}
	return localstore.NewSession(store), nil
}

// client returns the REST client. The saved session token is attached when present.
func (a *app) client() (*client.Client, error) {
	if a.api != nil {
		return a.api, nil
	}
	sess, err := a.session()
	if err != nil {
		return nil, err
	}
	a.api = client.New(a.v.GetString("server"), client.WithTokenSource(sess))
	return a.api, nil
}

func (a *app) controller(onIssuers func([]client.Issuer)) (*listing.Controller, error) {
	api, err := a.client()
	if err != nil {
		return nil, err
	}
	store, err := a.localStore()
	if err != nil {
		return nil, err
	}
	return listing.NewController(api, localstore.NewOwnerOverrides(store), a.notifier(), listing.Config{
		Team:            a.v.GetString("team"),
		BulkAssignTeam:  a.v.GetString("bulk-team"),
		Logger:          a.logger,
		IssuersReloaded: onIssuers,
	}), nil
}

func (a *app) notifier() listing.Notifier {
	return listing.NotifierFunc(func(n listing.Notification) {
		fmt.Fprintf(a.errOut, "[%s] %s\n", n.Severity, n.Message)
	})
}

func (a *app) team() string {
	return a.v.GetString("team")
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
