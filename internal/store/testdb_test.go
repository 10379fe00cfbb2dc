package store_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/accessmaps/parks-api/internal/config"
	"github.com/accessmaps/parks-api/internal/db"
	"github.com/accessmaps/parks-api/internal/store"
)

var (
	setupOnce sync.Once
	setupErr  error
	testConn  *gorm.DB
	postgis   testcontainers.Container
)

func TestMain(m *testing.M) {
	code := m.Run()
	if postgis != nil {
		_ = postgis.Terminate(context.Background())
	}
	os.Exit(code)
}

// startPostGIS runs a throwaway PostGIS container and returns its DSN.
func startPostGIS(ctx context.Context) (dsn string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgis/postgis:16-3.4",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "parks",
				"POSTGRES_PASSWORD": "parks",
				"POSTGRES_DB":       "parks",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", err
	}
	postgis = c

	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgres://parks:parks@%s:%s/parks?sslmode=disable", host, port.Port()), nil
}

// openStore returns a migrated store on empty tables, or skips the test when no
// PostGIS is reachable.
func openStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()

	setupOnce.Do(func() {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			if dsn, setupErr = startPostGIS(ctx); setupErr != nil {
				return
			}
		}
		testConn, setupErr = db.Connect(config.Database{
			URL:           dsn,
			MaxOpenConns:  8,
			MaxIdleConns:  8,
			SlowThreshold: time.Second,
		})
		if setupErr != nil {
			return
		}
		setupErr = store.New(testConn).Migrate(ctx)
	})
	if setupErr != nil {
		t.Skipf("PostGIS not available: %v", setupErr)
	}

	err := testConn.Exec(`TRUNCATE access_issues, walking_routes, parks, playgrounds RESTART IDENTITY CASCADE`).Error
	if err != nil {
		t.Fatalf("reset tables: %v", err)
	}
	return store.New(testConn)
}
