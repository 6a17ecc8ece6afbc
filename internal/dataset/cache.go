package dataset

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ragcon/safety-assistant/internal/types"
)

// Cache holds the parsed dataset for the life of the process. Concurrent
// first loads share one read; a failed load is not remembered, so the next
// call retries.
type Cache struct {
	src   Source
	group singleflight.Group

	mu    sync.RWMutex
	cases []types.AccidentCase
}

// NewCache creates a cache over src.
func NewCache(src Source) *Cache {
	return &Cache{src: src}
}

// Cases returns the full dataset, loading it on first use. The returned slice
// is shared; callers must not modify it.
//
// The shared load outlives the caller that started it: a caller whose ctx
// ends stops waiting and gets ctx.Err(), while the others keep waiting for
// the result.
func (c *Cache) Cases(ctx context.Context) ([]types.AccidentCase, error) {
	c.mu.RLock()
	cached := c.cases
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("dataset", func() (any, error) {
		cases, err := Load(loadCtx, c.src)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cases = cases
		c.mu.Unlock()
		return cases, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]types.AccidentCase), nil
	}
}

// Lookup returns the cases matching ids in dataset order.
func (c *Cache) Lookup(ctx context.Context, ids []types.CaseNumber) ([]types.AccidentCase, error) {
	cases, err := c.Cases(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByCaseNumbers(cases, ids), nil
}
