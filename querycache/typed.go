package querycache

import (
	"context"
	"fmt"
)

func FetchQuery[T any](ctx context.Context, qc *QueryCache, key QueryKey, fetchFn func(ctx context.Context) (T, error)) (T, error) {
	return typedResult[T](key)(qc.Fetch(ctx, key, wrapFetchFn(fetchFn)))
}

func RefetchQuery[T any](ctx context.Context, qc *QueryCache, key QueryKey, fetchFn func(ctx context.Context) (T, error)) (T, error) {
	return typedResult[T](key)(qc.Refetch(ctx, key, wrapFetchFn(fetchFn)))
}

func PeekQuery[T any](qc *QueryCache, key QueryKey) (T, bool) {
	var zero T
	data, _, found := qc.Peek(key)
	if !found {
		return zero, false
	}
	typed, ok := data.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

func wrapFetchFn[T any](fetchFn func(ctx context.Context) (T, error)) FetchFn {
	return func(ctx context.Context) (interface{}, error) {
		data, err := fetchFn(ctx)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

func typedResult[T any](key QueryKey) func(interface{}, error) (T, error) {
	return func(data interface{}, err error) (T, error) {
		var zero T
		if err != nil {
			return zero, err
		}
		typed, ok := data.(T)
		if !ok {
			return zero, fmt.Errorf("%w: %v (%T)", ErrTypeMismatch, key, data)
		}
		return typed, nil
	}
}
