// Copyright 2026 Peter Edge
//
// All rights reserved.

package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     2 * time.Millisecond,
}

func TestRetrySucceedsAfterTransientErrors(t *testing.T) {
	t.Parallel()
	var calls int
	result, err := Retry(context.Background(), testPolicy, func(_ context.Context, attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", errors.New("busy")
		}
		return "done", nil
	})
	require.NoError(t, err)
	require.Equal(t, "done", result)
	require.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("bad token")
	var calls int
	_, err := Retry(context.Background(), testPolicy, func(context.Context, int) (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestRetryExhausted(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("busy")
	_, err := Retry(context.Background(), testPolicy, func(context.Context, int) (int, error) {
		return 0, sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.ErrorContains(t, err, "failed after 3 attempts")
}

func TestRetryCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Retry(ctx, Policy{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}, func(context.Context, int) (int, error) {
		return 0, errors.New("busy")
	})
	require.ErrorIs(t, err, context.Canceled)
}
