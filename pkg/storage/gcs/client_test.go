package gcs

import (
	"context"
	"strings"
	"testing"

	"github.com/jerseyleague/shop-backend/pkg/config"
	"github.com/jerseyleague/shop-backend/pkg/storage"
)

func TestNewClientRequiresBucket(t *testing.T) {
	if _, err := NewClient(context.Background(), config.StorageConfig{}, config.GCPConfig{}, nil); err == nil {
		t.Fatal("expected missing bucket error")
	}
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	if err := c.Put(context.Background(), storage.Object{Key: "k", Body: strings.NewReader("x")}); err == nil {
		t.Fatal("expected put on nil client to fail")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on nil client to fail")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client should be a no-op: %v", err)
	}
	if (&Client{}).Provider() != "gcs" {
		t.Fatal("unexpected provider name")
	}
}
