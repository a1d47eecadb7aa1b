package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/polsterdata/polster/internal/storage"
)

// Asset is one materializable dataset. Assets communicate exclusively
// through the storage layer: an asset reads its dependencies' latest
// objects and publishes exactly one new object per run.
type Asset struct {
	Name    string
	Layer   storage.Layer
	Dataset string
	Deps    []string
	Run     func(ctx context.Context, env *Env) (storage.WriteResult, error)
}

// Prefix returns the listing prefix matching every version of the asset's
// output object.
func (a Asset) Prefix() string {
	return storage.DatasetPrefix(a.Layer, a.Dataset)
}

// Env carries the collaborators every asset needs. Now is injectable so
// tests control the timestamp token embedded in object names.
type Env struct {
	Store *storage.Store
	Log   zerolog.Logger
	Now   func() time.Time
	Seed  uint64
}

// Registry holds the known assets and resolves execution order.
type Registry struct {
	assets map[string]Asset
}

func NewRegistry() *Registry {
	return &Registry{assets: make(map[string]Asset)}
}

func (r *Registry) Register(a Asset) error {
	if _, exists := r.assets[a.Name]; exists {
		return fmt.Errorf("asset %q already registered", a.Name)
	}
	r.assets[a.Name] = a
	return nil
}

func (r *Registry) Get(name string) (Asset, bool) {
	a, ok := r.assets[name]
	return a, ok
}

// Names returns all registered asset names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.assets))
	for name := range r.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Closure expands the selection to include every transitive dependency.
// An empty selection means all assets.
func (r *Registry) Closure(names ...string) ([]string, error) {
	if len(names) == 0 {
		names = r.Names()
	}

	seen := make(map[string]bool)
	var visit func(name string) error
	visit = func(name string) error {
		if seen[name] {
			return nil
		}
		a, ok := r.assets[name]
		if !ok {
			return fmt.Errorf("unknown asset %q", name)
		}
		seen[name] = true
		for _, dep := range a.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Levels groups the selected assets into dependency levels: every asset in
// level i depends only on assets in levels < i. Assets within one level
// are independent and safe to materialize in parallel.
func (r *Registry) Levels(names []string) ([][]string, error) {
	selected := make(map[string]bool, len(names))
	for _, name := range names {
		selected[name] = true
	}

	indegree := make(map[string]int, len(names))
	dependents := make(map[string][]string)
	for _, name := range names {
		a := r.assets[name]
		for _, dep := range a.Deps {
			if !selected[dep] {
				return nil, fmt.Errorf("asset %q depends on %q which is not selected", name, dep)
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var levels [][]string
	current := make([]string, 0, len(names))
	for _, name := range names {
		if indegree[name] == 0 {
			current = append(current, name)
		}
	}

	done := 0
	for len(current) > 0 {
		sort.Strings(current)
		levels = append(levels, current)
		done += len(current)

		var next []string
		for _, name := range current {
			for _, dep := range dependents[name] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}

	if done != len(names) {
		return nil, fmt.Errorf("dependency cycle among assets")
	}
	return levels, nil
}
