package http

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var statementGroup singleflight.Group

// singleflightBuild collapses concurrent builds of the same statement key
// into one execution while honouring caller cancellation.
func singleflightBuild(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	resultChan := statementGroup.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		return res.Val, res.Err
	}
}
