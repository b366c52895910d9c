package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrovia/farmdesk/config"
	"github.com/agrovia/farmdesk/internal/migrate"
)

// DatabaseConfig groups the connection settings for the backing stores.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

const (
	connectTimeout  = 5 * time.Second
	poolMaxOpen     = 25
	poolMaxIdle     = 5
	poolMaxLifetime = 5 * time.Minute
)

// ConnectDB opens and verifies the PostgreSQL pool.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", postgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(poolMaxOpen)
	db.SetMaxIdleConns(poolMaxIdle)
	db.SetConnMaxLifetime(poolMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}
	return db, nil
}

// postgresDSN builds the connection URL, letting url.URL escape whatever
// characters the credentials happen to contain.
func postgresDSN(cfg config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectRedis builds and verifies a redis client in direct, sentinel or
// cluster mode depending on the configuration.
//
//nolint:ireturn // redis.UniversalClient covers all three deployment modes.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	var (
		client redis.UniversalClient
		desc   string
		err    error
	)
	switch {
	case cfg.RedisConfig.UseCluster:
		client, desc, err = clusterClient(cfg.RedisConfig)
	case cfg.RedisConfig.UseSentinel:
		client, desc, err = sentinelClient(cfg.RedisConfig)
	default:
		client, desc, err = directClient(cfg.RedisConfig)
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "addr", redactAddr(desc))
	}
	return client, nil
}

//nolint:ireturn // see ConnectRedis.
func clusterClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	addrs := make([]string, 0, len(cfg.ClusterNodes))
	for _, a := range cfg.ClusterNodes {
		if trimmed := strings.TrimSpace(a); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}

	opts := &redis.ClusterOptions{Password: cfg.Password}

	// A bare URI can stand in for an explicit node list.
	if len(addrs) == 0 {
		uri := strings.TrimSpace(cfg.URI)
		switch {
		case uri == "":
			return nil, "", errors.New("redis cluster configuration requires at least one address")
		case isRedisURL(uri):
			parsed, err := redis.ParseURL(uri)
			if err != nil {
				return nil, "", fmt.Errorf("parse redis cluster url: %w", err)
			}
			addrs = []string{parsed.Addr}
			opts.Username = parsed.Username
			opts.TLSConfig = parsed.TLSConfig
			if parsed.Password != "" {
				opts.Password = parsed.Password
			}
		default:
			addrs = []string{uri}
		}
	}
	opts.Addrs = addrs

	return redis.NewClusterClient(opts), "cluster:" + strings.Join(addrs, ","), nil
}

//nolint:ireturn // see ConnectRedis.
func sentinelClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	if len(cfg.SentinelNodes) == 0 {
		return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
	}

	client := redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:       cfg.SentinelMasterName,
		SentinelAddrs:    cfg.SentinelNodes,
		Password:         cfg.Password,
		SentinelPassword: cfg.SentinelPassword,
		DB:               cfg.DB,
	})
	return client, "sentinel:" + cfg.SentinelMasterName, nil
}

//nolint:ireturn // see ConnectRedis.
func directClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, "", errors.New("redis configuration requires a URI")
	}

	if isRedisURL(uri) {
		opt, err := redis.ParseURL(uri)
		if err != nil {
			return nil, "", fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), opt.Addr, nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     uri,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), uri, nil
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}

// redactAddr strips credentials from an address before it reaches the logs.
func redactAddr(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(addr, "@"); i > -1 {
		return addr[i+1:]
	}
	return addr
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}
	return nil
}
