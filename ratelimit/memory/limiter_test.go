package memorylimiter

import (
	"context"
	"testing"
	"time"

	"github.com/PaulFidika/otpkit/ratelimit"
)

func TestLimiter_SlidingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(nil).WithNow(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, ratelimit.BucketPhoneSend, "0912345678")
		if err != nil || !ok {
			t.Fatalf("send %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, ratelimit.BucketPhoneSend, "0912345678"); ok {
		t.Fatalf("expected 4th send denied")
	}
	if ok, _ := l.Allow(ctx, ratelimit.BucketPhoneSend, "0987654321"); !ok {
		t.Fatalf("expected other phone allowed")
	}

	now = now.Add(10*time.Minute + time.Second)
	if ok, _ := l.Allow(ctx, ratelimit.BucketPhoneSend, "0912345678"); !ok {
		t.Fatalf("expected window to slide")
	}
}

func TestLimiter_RequiresBucketAndKey(t *testing.T) {
	if _, err := New(nil).AllowNamed("", "k"); err == nil {
		t.Fatalf("expected error for empty bucket")
	}
}
