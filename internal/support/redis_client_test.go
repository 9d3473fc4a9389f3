package support

import (
	"context"
	"testing"
)

func TestNewRedisClientEmptyURL(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "  ")
	if err != nil {
		t.Fatalf("NewRedisClient returned error: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client for empty URL")
	}
}

func TestNewRedisClientInvalidURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "not-a-redis-url"); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}
