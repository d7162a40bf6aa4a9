package platform

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingDirectory struct {
	calls atomic.Int32
	fail  bool
}

func (d *countingDirectory) ResolveMember(_ context.Context, userID string) (string, error) {
	d.calls.Add(1)

	if d.fail {
		return "", errors.New("lookup failed")
	}

	return "member-" + userID, nil
}

func (d *countingDirectory) SendDirectMessage(_ context.Context, _ string, _ string) error {
	return nil
}

func TestCachedDirectory(t *testing.T) {
	inner := &countingDirectory{}
	d := NewCachedDirectory(inner, time.Minute)

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		name, err := d.ResolveMember(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, "member-u1", name)
	}

	require.EqualValues(t, 1, inner.calls.Load())

	_, err := d.ResolveMember(ctx, "u2")
	require.NoError(t, err)
	require.EqualValues(t, 2, inner.calls.Load())
}

func TestCachedDirectory_LookupFailure(t *testing.T) {
	inner := &countingDirectory{fail: true}
	d := NewCachedDirectory(inner, time.Minute)

	_, err := d.ResolveMember(context.Background(), "u1")
	require.ErrorIs(t, err, ErrNotFound)
}
