package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/solarwatch/zeroprice/internal/page"
)

// loadWithin runs load under timeout. On deadline it calls stop so the tab
// does not keep loading into the next navigation, and reports
// page.ErrNavigationTimeout. Cancellation of ctx itself is not a timeout.
func loadWithin(ctx context.Context, url string, timeout time.Duration,
	load func(context.Context) error, stop func() error, logger *slog.Logger) error {

	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := load(navCtx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		if stopErr := stop(); stopErr != nil {
			logger.Warn("browser: stop loading", "url", url, "error", stopErr)
		}
		return fmt.Errorf("%w: %s after %s", page.ErrNavigationTimeout, url, timeout)
	}
	return fmt.Errorf("%w: %s: %v", page.ErrNavigation, url, err)
}

// scrollUntilStable reads the height, scrolls, pauses and reads again,
// stopping once two consecutive reads match or after maxScrolls scrolls. It
// returns the number of scrolls performed and whether the cap was hit.
func scrollUntilStable(ctx context.Context, height func() (int, error), scroll func() error,
	pause time.Duration, maxScrolls int) (scrolls int, capped bool, err error) {

	last, err := height()
	if err != nil {
		return 0, false, err
	}
	for scrolls < maxScrolls {
		if err := scroll(); err != nil {
			return scrolls, false, err
		}
		scrolls++

		select {
		case <-ctx.Done():
			return scrolls, false, ctx.Err()
		case <-time.After(pause):
		}

		h, err := height()
		if err != nil {
			return scrolls, false, err
		}
		if h == last {
			return scrolls, false, nil
		}
		last = h
	}
	return scrolls, true, nil
}
