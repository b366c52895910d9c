// Package testutil provides shared helpers for tests that need live
// infrastructure. Tests skip when the backing service is unavailable unless
// TEST_REQUIRE_INFRA forces a failure instead.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/redis/go-redis/v9"

	"github.com/agrovia/farmdesk/internal/migrate"
)

// SetupTestDB connects to the test Postgres database and runs migrations.
// The test is skipped when the database is unreachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	u := &url.URL{
		Scheme: "postgres",
		User: url.UserPassword(
			getEnvOrDefault("TEST_DB_USER", "farmdesk"),
			getEnvOrDefault("TEST_DB_PASSWORD", "farmdesk"),
		),
		Host: fmt.Sprintf("%s:%s",
			getEnvOrDefault("TEST_DB_HOST", "localhost"),
			getEnvOrDefault("TEST_DB_PORT", "55432"),
		),
		Path:     "/" + getEnvOrDefault("TEST_DB_NAME", "farmdesk"),
		RawQuery: "sslmode=disable",
	}

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		skipOrFail(t, requireDB(), "open test database: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		skipOrFail(t, requireDB(), "test database not available at %s: %v", u.Host, pingErr)
		return nil
	}

	if migrateErr := migrate.Run(context.Background(), db); migrateErr != nil {
		_ = db.Close()
		t.Fatalf("run migrations on test database: %v", migrateErr)
	}

	t.Cleanup(func() {
		if cerr := db.Close(); cerr != nil {
			t.Logf("warning: failed to close test database: %v", cerr)
		}
	})
	return db
}

// SetupTestRedis creates a Redis client against the test instance. The test
// is skipped when Redis is unreachable.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := getEnvOrDefault("TEST_REDIS_ADDR", "localhost:6379")
	dbIndex := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			dbIndex = n
		} else {
			t.Logf("invalid TEST_REDIS_DB=%q, using 0", v)
		}
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: dbIndex})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client after ping error: %v", cerr)
		}
		skipOrFail(t, requireRedis(), "redis not available for testing at %s: %v", addr, err)
		return nil
	}

	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close test redis client: %v", cerr)
		}
	})
	return client
}

func skipOrFail(t *testing.T, required bool, format string, args ...any) {
	t.Helper()
	if required {
		t.Fatalf(format, args...)
	}
	t.Skipf(format, args...)
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}

func getEnvOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
