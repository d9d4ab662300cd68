package db

import (
	"context"
	"testing"

	"github.com/angelmondragon/gheehive-storefront/pkg/config"
)

func newSQLiteClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		DSN:          "file::memory:?cache=shared",
		Driver:       "sqlite",
		MaxOpenConns: 1,
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{Driver: "postgres"}, nil); err == nil {
		t.Fatal("expected an error without a DSN")
	}
}

func TestPing(t *testing.T) {
	client := newSQLiteClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestDialectFollowsDriver(t *testing.T) {
	client := newSQLiteClient(t)
	if got := client.Dialect(); got != "sqlite3" {
		t.Fatalf("expected sqlite3 dialect, got %q", got)
	}
	if got := NewFromConn(client.DB()).Dialect(); got != "sqlite3" {
		t.Fatalf("expected wrapped conn to keep the dialect, got %q", got)
	}
}
