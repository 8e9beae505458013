package browser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hazyhaar/solarwatch/zeroprice/internal/page"
)

// feed simulates a lazily loading page: each scroll reveals the next
// height in the list, then the page stops growing.
type feed struct {
	heights []int
	pos     int
	scrolls int
}

func (f *feed) height() (int, error) { return f.heights[f.pos], nil }

func (f *feed) scroll() error {
	f.scrolls++
	if f.pos < len(f.heights)-1 {
		f.pos++
	}
	return nil
}

func TestScrollUntilStable_GrowthThenStable(t *testing.T) {
	// WHAT: heights 1000, 2000, 3000 then no growth: two growing scrolls plus one confirming.
	// WHY: lazy tiles only exist after the page stops growing.
	f := &feed{heights: []int{1000, 2000, 3000}}
	n, capped, err := scrollUntilStable(context.Background(), f.height, f.scroll, time.Millisecond, 50)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || capped {
		t.Errorf("scrolls = %d capped = %v, want 3 false", n, capped)
	}
}

func TestScrollUntilStable_ImmediatelyStable(t *testing.T) {
	f := &feed{heights: []int{800}}
	n, capped, err := scrollUntilStable(context.Background(), f.height, f.scroll, time.Millisecond, 50)
	if err != nil || n != 1 || capped {
		t.Errorf("scrolls = %d capped = %v err = %v, want 1 false nil", n, capped, err)
	}
}

func TestScrollUntilStable_Cap(t *testing.T) {
	h := 0
	height := func() (int, error) { h += 100; return h, nil }
	scrolls := 0
	scroll := func() error { scrolls++; return nil }

	n, capped, err := scrollUntilStable(context.Background(), height, scroll, time.Millisecond, 5)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || scrolls != 5 || !capped {
		t.Errorf("scrolls = %d/%d capped = %v, want 5 true", n, scrolls, capped)
	}
}

func TestScrollUntilStable_CancelledDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &feed{heights: []int{1000, 2000}}
	scroll := func() error {
		cancel()
		return f.scroll()
	}
	start := time.Now()
	_, _, err := scrollUntilStable(ctx, f.height, scroll, time.Hour, 50)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("pause not interrupted by cancellation")
	}
}

func TestScrollUntilStable_ErrorsPropagate(t *testing.T) {
	boom := errors.New("eval failed")
	f := &feed{heights: []int{1000, 2000}}
	_, _, err := scrollUntilStable(context.Background(), f.height, func() error { return boom }, time.Millisecond, 50)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want scroll error", err)
	}
	_, _, err = scrollUntilStable(context.Background(), func() (int, error) { return 0, boom }, f.scroll, time.Millisecond, 50)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want height error", err)
	}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestLoadWithin_TimeoutStopsLoading(t *testing.T) {
	// WHAT: a load that outlives the timeout is stopped and reported as a timeout.
	// WHY: a hung page must not keep loading into the next target.
	hang := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	stopped := false
	stop := func() error { stopped = true; return nil }

	err := loadWithin(context.Background(), "https://shop/slow/", 20*time.Millisecond, hang, stop, quiet())
	if !errors.Is(err, page.ErrNavigationTimeout) {
		t.Fatalf("err = %v, want ErrNavigationTimeout", err)
	}
	if !stopped {
		t.Error("stop loading not called")
	}
}

func TestLoadWithin_OtherOutcomes(t *testing.T) {
	stopped := false
	stop := func() error { stopped = true; return nil }

	if err := loadWithin(context.Background(), "u", time.Second,
		func(context.Context) error { return nil }, stop, quiet()); err != nil {
		t.Errorf("success: err = %v", err)
	}

	err := loadWithin(context.Background(), "u", time.Second,
		func(context.Context) error { return errors.New("net::ERR_NAME_NOT_RESOLVED") }, stop, quiet())
	if !errors.Is(err, page.ErrNavigation) || errors.Is(err, page.ErrNavigationTimeout) {
		t.Errorf("failure: err = %v, want ErrNavigation", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = loadWithin(ctx, "u", time.Second,
		func(c context.Context) error { return c.Err() }, stop, quiet())
	if errors.Is(err, page.ErrNavigationTimeout) {
		t.Errorf("cancellation reported as timeout: %v", err)
	}
	if stopped {
		t.Error("stop called outside a timeout")
	}
}
