package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowtool/burrow/config"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	conf := config.DefaultConfig()
	conf.StateDir = t.TempDir()
	require.NoError(t, conf.EnsureStateDirs())
	return NewRegistry(conf)
}

// TestAllocate_Sequential verifies ranges are handed out without overlap.
func TestAllocate_Sequential(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	a, err := reg.Allocate(ctx, "alpha", "/src/alpha", 10)
	require.NoError(t, err)
	assert.Equal(t, Range{Start: 3000, End: 3009}, a)

	b, err := reg.Allocate(ctx, "beta", "/src/beta", 20)
	require.NoError(t, err)
	assert.Equal(t, Range{Start: 3010, End: 3029}, b)
	assert.False(t, a.Overlaps(b))
}

// TestAllocate_Idempotent verifies re-allocation returns the recorded
// range even when the requested width differs.
func TestAllocate_Idempotent(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	first, err := reg.Allocate(ctx, "alpha", "/src/alpha", 10)
	require.NoError(t, err)

	second, err := reg.Allocate(ctx, "alpha", "/src/alpha", 50)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestAllocate_FillsGap verifies a released range is reused for a
// fitting later request.
func TestAllocate_FillsGap(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	_, err := reg.Allocate(ctx, "alpha", "", 10)
	require.NoError(t, err)
	_, err = reg.Allocate(ctx, "beta", "", 10)
	require.NoError(t, err)

	require.NoError(t, reg.Release(ctx, "alpha"))

	r, err := reg.Allocate(ctx, "gamma", "", 10)
	require.NoError(t, err)
	assert.Equal(t, Range{Start: 3000, End: 3009}, r)
}

// TestAllocate_GapTooSmall verifies a gap narrower than the request is
// skipped over.
func TestAllocate_GapTooSmall(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	_, err := reg.Allocate(ctx, "alpha", "", 5)
	require.NoError(t, err)
	_, err = reg.Allocate(ctx, "beta", "", 10)
	require.NoError(t, err)
	require.NoError(t, reg.Release(ctx, "alpha"))

	r, err := reg.Allocate(ctx, "gamma", "", 10)
	require.NoError(t, err)
	assert.Equal(t, Range{Start: 3015, End: 3024}, r)
}

// TestRelease_Unknown verifies releasing an unrecorded project is a no-op.
func TestRelease_Unknown(t *testing.T) {
	reg := testRegistry(t)
	require.NoError(t, reg.Release(context.Background(), "ghost"))
}

// TestAllocate_Concurrent verifies concurrent allocations for distinct
// projects never overlap.
func TestAllocate_Concurrent(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	const n = 8
	results := make([]Range, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := reg.Allocate(ctx, fmt.Sprintf("proj-%d", i), "", 10)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			assert.False(t, results[i].Overlaps(results[j]),
				"%s overlaps %s", results[i], results[j])
		}
	}
}

// TestParseRange covers the accepted and rejected forms.
func TestParseRange(t *testing.T) {
	r, err := ParseRange("3000-3009")
	require.NoError(t, err)
	assert.Equal(t, 10, r.Width())

	_, err = ParseRange("3000")
	assert.Error(t, err)
	_, err = ParseRange("3009-3000")
	assert.Error(t, err)
	_, err = ParseRange("0-10")
	assert.Error(t, err)
}
