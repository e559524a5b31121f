package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/gamecatalog/internal/domain"
)

func TestChannel(t *testing.T) {
	assert.Equal(t, "catalog:teams", Channel("teams"))
}

func TestPublishWithoutRedisFails(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	s := NewSignalService(rdb)
	err := s.Publish(context.Background(), domain.ChangeEvent{Entity: "teams", Action: domain.ActionCreated})
	assert.Error(t, err)
}

func TestRealtime(t *testing.T) {
	addr := os.Getenv("CATALOG_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CATALOG_TEST_REDIS_ADDR is not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	s := NewSignalService(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	input := make(chan []string)
	output := make(chan domain.ChangeEvent, 1)
	done := make(chan struct{})
	go func() {
		s.Realtime(ctx, input, output)
		close(done)
	}()

	input <- []string{"teams"}
	// give the subscription a moment to register
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, s.Publish(ctx, domain.ChangeEvent{Entity: "roles", Action: domain.ActionCreated, ID: "r"}))
	require.NoError(t, s.Publish(ctx, domain.ChangeEvent{Entity: "teams", Action: domain.ActionDeleted, ID: "t"}))

	select {
	case event := <-output:
		assert.Equal(t, "teams", event.Entity)
		assert.Equal(t, "t", event.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	<-done
}
