package infra

import (
	"context"
	"testing"
	"time"

	"quota-gateway/middleware/quota/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisStatsStore_RecordIncrementsTotalsAndKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	s := NewRedisStatsStore(rdb, WithStatsPrefix("q:stats"), WithStatsTrackKeys(true))

	at := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	events := []domain.StatsEvent{
		{Key: "K", Allowed: true, At: at},
		{Key: "K", Allowed: true, At: at},
		{Key: "K", Allowed: false, At: at},
	}
	for _, ev := range events {
		if err := s.Record(context.Background(), ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := mr.HGet("q:stats:total", "allowed"); got != "2" {
		t.Fatalf("expected total allowed=2, got %q", got)
	}
	if got := mr.HGet("q:stats:total", "denied"); got != "1" {
		t.Fatalf("expected total denied=1, got %q", got)
	}
	if got := mr.HGet("q:stats:minute:202608291030", "allowed"); got != "2" {
		t.Fatalf("expected minute bucket allowed=2, got %q", got)
	}
	if got := mr.HGet("q:stats:key:K", "denied"); got != "1" {
		t.Fatalf("expected per-key denied=1, got %q", got)
	}

	// total é cumulativo e não expira; bucket/chave têm TTL
	if ttl := mr.TTL("q:stats:total"); ttl != 0 {
		t.Fatalf("expected no TTL on total, got %v", ttl)
	}
	if ttl := mr.TTL("q:stats:minute:202608291030"); ttl != 24*time.Hour {
		t.Fatalf("expected 24h TTL on minute bucket, got %v", ttl)
	}
}

func TestRedisStatsStore_NilClientIsNoop(t *testing.T) {
	var s *RedisStatsStore
	if err := s.Record(context.Background(), domain.StatsEvent{Key: "K"}); err != nil {
		t.Fatalf("expected nil store to be a no-op, got %v", err)
	}
}
