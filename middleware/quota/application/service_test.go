package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"quota-gateway/middleware/quota/domain"
)

type stubCounter struct {
	count   int64
	err     error
	calls   int
	lastKey domain.AccessKey
	lastNow time.Time
}

func (c *stubCounter) Admit(_ context.Context, key domain.AccessKey, now time.Time) (int64, error) {
	c.calls++
	c.lastKey = key
	c.lastNow = now
	if c.err != nil {
		return 0, c.err
	}
	c.count++
	return c.count, nil
}

func TestService_AdmitsUpToQuotaThenRejects(t *testing.T) {
	counter := &stubCounter{}
	svc := Service{Counter: counter}
	cred := domain.Credentials{AccessKey: "k", Quota: 3}

	wantRemaining := []int{2, 1, 0}
	for i, want := range wantRemaining {
		dec, err := svc.Admit(context.Background(), cred, time.Now())
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
		if !dec.Allowed {
			t.Fatalf("call %d: expected allowed", i+1)
		}
		if dec.Remaining != want {
			t.Fatalf("call %d: expected remaining %d, got %d", i+1, want, dec.Remaining)
		}
		if dec.Limit != 3 {
			t.Fatalf("call %d: expected limit 3, got %d", i+1, dec.Limit)
		}
	}

	dec, err := svc.Admit(context.Background(), cred, time.Now())
	if !errors.Is(err, domain.ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
	if dec.Allowed {
		t.Fatalf("expected rejection decision")
	}
	if dec.RollingCount != 4 {
		t.Fatalf("expected rolling count 4, got %d", dec.RollingCount)
	}
}

func TestService_QuantizesNowToMilliseconds(t *testing.T) {
	counter := &stubCounter{}
	svc := Service{Counter: counter}

	now := time.Date(2026, 8, 29, 10, 0, 0, 123_456_789, time.UTC)
	if _, err := svc.Admit(context.Background(), domain.Credentials{AccessKey: "k", Quota: 1}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := now.Truncate(time.Millisecond)
	if !counter.lastNow.Equal(want) {
		t.Fatalf("expected now quantized to %v, got %v", want, counter.lastNow)
	}
	if counter.lastNow.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("expected millisecond precision, got %v", counter.lastNow)
	}
}

func TestService_StoreErrorFailsClosed(t *testing.T) {
	storeErr := errors.New("connection refused")
	svc := Service{Counter: &stubCounter{err: storeErr}}

	dec, err := svc.Admit(context.Background(), domain.Credentials{AccessKey: "k", Quota: 5}, time.Now())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if errors.Is(err, domain.ErrRateLimitExceeded) {
		t.Fatalf("store failure must not look like a rate limit rejection")
	}
	if dec.Allowed {
		t.Fatalf("fail-closed: expected not allowed")
	}
}

func TestService_StoreErrorFailOpenAdmits(t *testing.T) {
	svc := Service{Counter: &stubCounter{err: errors.New("boom")}, FailOpen: true}

	dec, err := svc.Admit(context.Background(), domain.Credentials{AccessKey: "k", Quota: 5}, time.Now())
	if err != nil {
		t.Fatalf("fail-open: unexpected error: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("fail-open: expected allowed")
	}
	if dec.Remaining != 5 {
		t.Fatalf("fail-open: expected full remaining 5, got %d", dec.Remaining)
	}
}

func TestService_NilCounterAllows(t *testing.T) {
	svc := Service{}

	dec, err := svc.Admit(context.Background(), domain.Credentials{AccessKey: "k", Quota: 2}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed || dec.Remaining != 2 {
		t.Fatalf("expected allow with full remaining, got %+v", dec)
	}
}
