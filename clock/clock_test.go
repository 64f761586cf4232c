package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManual_TickOnlyWhileRunning(t *testing.T) {
	m := NewManual()
	var n int
	if m.Tick() {
		t.Fatalf("expected no tick before Start")
	}
	if err := m.Start(func() { n++ }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Tick()
	m.Tick()
	m.Stop()
	if m.Tick() || m.Running() {
		t.Fatalf("expected no tick after Stop")
	}
	if n != 2 {
		t.Fatalf("expected 2 ticks, got %d", n)
	}
}

func TestCronTicker_FiresAndStops(t *testing.T) {
	ct := NewCron(time.Second, nil)
	var n atomic.Int32
	if err := ct.Start(func() { n.Add(1) }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !ct.Running() {
		t.Fatalf("expected running")
	}
	deadline := time.Now().Add(3 * time.Second)
	for n.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if n.Load() == 0 {
		t.Fatalf("expected at least one tick within 3s")
	}
	ct.Stop()
	if ct.Running() {
		t.Fatalf("expected stopped")
	}
	ct.Stop()
}
