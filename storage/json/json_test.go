package json

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Counters map[string]int `json:"counters"`
}

func (d *testDoc) Init() {
	if d.Counters == nil {
		d.Counters = map[string]int{}
	}
}

func testStore(t *testing.T) *Store[testDoc] {
	t.Helper()
	dir := t.TempDir()
	return New[testDoc](filepath.Join(dir, "doc.lock"), filepath.Join(dir, "doc.json"))
}

// TestWith_MissingFile verifies a missing file yields an initialized
// zero value.
func TestWith_MissingFile(t *testing.T) {
	s := testStore(t)
	err := s.With(context.Background(), func(d *testDoc) error {
		assert.NotNil(t, d.Counters)
		assert.Empty(t, d.Counters)
		return nil
	})
	require.NoError(t, err)
}

// TestUpdate_Persists verifies a mutation survives a reload.
func TestUpdate_Persists(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(d *testDoc) error {
		d.Counters["x"] = 41
		return nil
	}))
	require.NoError(t, s.Update(ctx, func(d *testDoc) error {
		d.Counters["x"]++
		return nil
	}))

	err := s.With(ctx, func(d *testDoc) error {
		assert.Equal(t, 42, d.Counters["x"])
		return nil
	})
	require.NoError(t, err)
}

// TestUpdate_ErrAborts verifies fn errors leave the file untouched.
func TestUpdate_ErrAborts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(d *testDoc) error {
		d.Counters["x"] = 1
		return nil
	}))
	_ = s.Update(ctx, func(d *testDoc) error {
		d.Counters["x"] = 99
		return assert.AnError
	})

	err := s.With(ctx, func(d *testDoc) error {
		assert.Equal(t, 1, d.Counters["x"])
		return nil
	})
	require.NoError(t, err)
}

// TestUpdate_Concurrent verifies increments under the flock never lose
// writes.
func TestUpdate_Concurrent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, func(d *testDoc) error {
				d.Counters["x"]++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	err := s.With(ctx, func(d *testDoc) error {
		assert.Equal(t, n, d.Counters["x"])
		return nil
	})
	require.NoError(t, err)
}
