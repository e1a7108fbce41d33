package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"treeprune/internal/fsops"
)

func TestNewDeleterUnlimited(t *testing.T) {
	fake := &fsops.FakeDeleter{}
	for _, r := range []float64{0, -1} {
		if got := NewDeleter(context.Background(), fake, r, 1); got != fsops.Deleter(fake) {
			t.Errorf("rate %v should return the wrapped deleter, got %T", r, got)
		}
	}
}

func TestDeleterForwards(t *testing.T) {
	fake := &fsops.FakeDeleter{}
	d := NewDeleter(context.Background(), fake, 1000, 10)

	if err := d.Remove("/a/file"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := d.RemoveDir("/a"); err != nil {
		t.Fatalf("RemoveDir failed: %v", err)
	}

	want := []string{"rm:/a/file", "rmdir:/a"}
	if len(fake.Calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, fake.Calls)
	}
	for i := range want {
		if fake.Calls[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], fake.Calls[i])
		}
	}
}

func TestDeleterThrottles(t *testing.T) {
	fake := &fsops.FakeDeleter{}
	d := NewDeleter(context.Background(), fake, 20, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := d.Remove("/f"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
	}
	// first call uses the burst, the next two wait 50ms each
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected throttling, 3 removals took %v", elapsed)
	}
}

func TestDeleterCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fsops.FakeDeleter{}
	d := NewDeleter(ctx, fake, 1, 1)

	// drain the burst token
	_ = d.Remove("/first")
	err := d.Remove("/second")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	for _, c := range fake.Calls {
		if c == "rm:/second" {
			t.Error("cancelled removal must not reach the deleter")
		}
	}
}
