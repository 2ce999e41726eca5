// Package ports maintains the host-wide table of port ranges reserved per
// project. All access goes through a flock-guarded JSON store so that
// concurrent invocations for different projects never receive overlapping
// ranges.
package ports

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/burrowtool/burrow/config"
	storejson "github.com/burrowtool/burrow/storage/json"
)

const (
	// scanBase is the first host port considered for new allocations.
	scanBase = 3000
	// scanLimit is the exclusive upper bound for allocations.
	scanLimit = 65535
)

// Range is an inclusive port range.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ParseRange parses "start-end".
func ParseRange(s string) (Range, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return Range{}, fmt.Errorf("invalid port range %q", s)
	}
	start, err := strconv.Atoi(lo)
	if err != nil {
		return Range{}, fmt.Errorf("invalid port range %q: %w", s, err)
	}
	end, err := strconv.Atoi(hi)
	if err != nil {
		return Range{}, fmt.Errorf("invalid port range %q: %w", s, err)
	}
	r := Range{Start: start, End: end}
	if !r.valid() {
		return Range{}, fmt.Errorf("invalid port range %q", s)
	}
	return r, nil
}

func (r Range) valid() bool {
	return r.Start > 0 && r.End >= r.Start && r.End < scanLimit
}

// Width is the number of ports in the range.
func (r Range) Width() int { return r.End - r.Start + 1 }

// Overlaps reports whether two ranges share any port.
func (r Range) Overlaps(o Range) bool {
	return r.Start <= o.End && o.Start <= r.End
}

func (r Range) String() string { return fmt.Sprintf("%d-%d", r.Start, r.End) }

// Allocation is one persisted registry record.
type Allocation struct {
	Range Range  `json:"range"`
	Path  string `json:"path"`
}

type index struct {
	Projects map[string]Allocation `json:"projects"`
}

// Init implements storage.Initer.
func (idx *index) Init() {
	if idx.Projects == nil {
		idx.Projects = make(map[string]Allocation)
	}
}

// Registry hands out non-overlapping port ranges keyed by project.
type Registry struct {
	store *storejson.Store[index]
}

// NewRegistry creates a Registry backed by the configured store paths.
func NewRegistry(conf *config.Config) *Registry {
	return &Registry{store: storejson.New[index](conf.PortRegistryLock(), conf.PortRegistryFile())}
}

// Allocate returns the project's recorded range, or records the first free
// gap of the requested width. Re-initializing a project is idempotent:
// the existing allocation is returned even if width differs.
func (r *Registry) Allocate(ctx context.Context, project, path string, width int) (Range, error) {
	if project == "" {
		return Range{}, fmt.Errorf("allocate: empty project id")
	}
	if width <= 0 {
		return Range{}, fmt.Errorf("allocate %s: invalid width %d", project, width)
	}
	var result Range
	err := r.store.Update(ctx, func(idx *index) error {
		if existing, ok := idx.Projects[project]; ok {
			result = existing.Range
			return nil
		}
		rng, err := firstFree(idx, width)
		if err != nil {
			return fmt.Errorf("allocate %s: %w", project, err)
		}
		idx.Projects[project] = Allocation{Range: rng, Path: path}
		result = rng
		return nil
	})
	return result, err
}

// Lookup returns the recorded allocation for a project.
func (r *Registry) Lookup(ctx context.Context, project string) (Range, bool, error) {
	var result Range
	var found bool
	err := r.store.With(ctx, func(idx *index) error {
		alloc, ok := idx.Projects[project]
		result, found = alloc.Range, ok
		return nil
	})
	return result, found, err
}

// Release removes a project's allocation. Unknown projects are a no-op.
func (r *Registry) Release(ctx context.Context, project string) error {
	return r.store.Update(ctx, func(idx *index) error {
		delete(idx.Projects, project)
		return nil
	})
}

// List returns all allocations keyed by project.
func (r *Registry) List(ctx context.Context) (map[string]Allocation, error) {
	out := map[string]Allocation{}
	err := r.store.With(ctx, func(idx *index) error {
		for k, v := range idx.Projects {
			out[k] = v
		}
		return nil
	})
	return out, err
}

// firstFree scans recorded allocations in port order and returns the first
// gap of the requested width at or above scanBase.
func firstFree(idx *index, width int) (Range, error) {
	var taken []Range
	for _, alloc := range idx.Projects {
		taken = append(taken, alloc.Range)
	}
	sort.Slice(taken, func(i, j int) bool { return taken[i].Start < taken[j].Start })

	start := scanBase
	for _, t := range taken {
		candidate := Range{Start: start, End: start + width - 1}
		if candidate.End >= scanLimit {
			break
		}
		if candidate.End < t.Start {
			return candidate, nil
		}
		if t.End+1 > start {
			start = t.End + 1
		}
	}
	candidate := Range{Start: start, End: start + width - 1}
	if candidate.End >= scanLimit {
		return Range{}, fmt.Errorf("no free range of width %d", width)
	}
	return candidate, nil
}
