package yaml

import (
	"context"
	"fmt"
	"os"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/burrowtool/burrow/lock"
	"github.com/burrowtool/burrow/lock/flock"
	"github.com/burrowtool/burrow/storage"
	"github.com/burrowtool/burrow/utils"
)

// Store provides flock-protected read/modify/write access to a YAML file.
// Same contract as the JSON store; used for the state files that are
// meant to be hand-readable.
type Store[T any] struct {
	lockPath string
	filePath string
}

// compile-time interface check.
var _ storage.Store[struct{}] = (*Store[struct{}])(nil)

// New creates a Store for the given lock and data file paths.
func New[T any](lockPath, filePath string) *Store[T] {
	return &Store[T]{lockPath: lockPath, filePath: filePath}
}

// With loads the YAML file under flock and passes the deserialized data
// to fn. A missing file yields a zero-value T. If *T implements
// storage.Initer, Init() is called before fn.
func (s *Store[T]) With(ctx context.Context, fn func(*T) error) error {
	return lock.WithLock(ctx, flock.New(s.lockPath), func() error {
		var data T
		raw, err := os.ReadFile(s.filePath) //nolint:gosec // internal metadata
		if err != nil {
			if os.IsNotExist(err) {
				initData(&data)
				return fn(&data)
			}
			return fmt.Errorf("read %s: %w", s.filePath, err)
		}
		if err := yamlv3.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parse %s: %w", s.filePath, err)
		}
		initData(&data)
		return fn(&data)
	})
}

// Update performs a read-modify-write on the YAML file under flock.
// If fn returns nil the data is atomically written back.
func (s *Store[T]) Update(ctx context.Context, fn func(*T) error) error {
	return s.With(ctx, func(data *T) error {
		if err := fn(data); err != nil {
			return err
		}
		raw, err := yamlv3.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", s.filePath, err)
		}
		return utils.AtomicWriteFile(s.filePath, raw, 0o644)
	})
}

func initData[T any](data *T) {
	if initer, ok := any(data).(storage.Initer); ok {
		initer.Init()
	}
}
