package sim

import (
	"context"
	"sync"
)

// RunAll advances each world ticks times, one goroutine per world. Worlds
// share nothing, so this is safe as long as no body appears in two worlds.
// The first error in world order is returned.
func RunAll(ctx context.Context, worlds []*World, ticks int) error {
	errs := make([]error, len(worlds))

	var wg sync.WaitGroup
	for i, w := range worlds {
		wg.Add(1)
		go func(idx int, w *World) {
			defer wg.Done()
			errs[idx] = w.Run(ctx, ticks)
		}(i, w)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
