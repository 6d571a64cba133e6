package shipper

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered shipping carriers.
type Registry struct {
	shippers map[string]Shipper
	mu       sync.RWMutex
}

// NewRegistry creates a new shipper registry.
func NewRegistry() *Registry {
	return &Registry{
		shippers: make(map[string]Shipper),
	}
}

// Register adds a shipper to the registry.
func (r *Registry) Register(s Shipper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shippers[s.Name()] = s
}

// Get returns a shipper by name.
func (r *Registry) Get(name string) (Shipper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.shippers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// GetFor returns a shipper by name, failing with IncompleteCoverageError when
// it does not integrate op.
func (r *Registry) GetFor(name string, op Operation) (Shipper, error) {
	s, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if !Supports(s, op) {
		return nil, &IncompleteCoverageError{Carrier: name, Operation: op}
	}
	return s, nil
}

// All returns all registered shippers ordered by name.
func (r *Registry) All() []Shipper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Shipper, 0, len(r.shippers))
	for _, s := range r.shippers {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Names returns the sorted names of all registered shippers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.shippers))
	for name := range r.shippers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered shippers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shippers)
}

// FindAllRates fetches rates from every registered carrier that supports
// rating, in parallel. A carrier failure is collected and does not fail the
// others.
func (r *Registry) FindAllRates(ctx context.Context, s *Shipment, opts Options) ([]*Response, []error) {
	var names []string
	for _, sh := range r.All() {
		if Supports(sh, OpRate) {
			names = append(names, sh.Name())
		}
	}
	if len(names) == 0 {
		return nil, []error{ErrCarrierNotFound}
	}
	return r.FindRatesFromCarriers(ctx, s, opts, names)
}

// FindRatesFromCarriers fetches rates from specific carriers. Responses come
// back in the order the carriers were named.
func (r *Registry) FindRatesFromCarriers(ctx context.Context, s *Shipment, opts Options, carriers []string) ([]*Response, []error) {
	if len(carriers) == 0 {
		return r.FindAllRates(ctx, s, opts)
	}

	slots := make([]*Response, len(carriers))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for i, name := range carriers {
		g.Go(func() error {
			sh, err := r.GetFor(name, OpRate)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}

			resp, err := sh.FindRates(ctx, s, opts)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				return nil // Don't fail the group, continue with other carriers
			}
			slots[i] = resp
			return nil
		})
	}

	_ = g.Wait()

	results := make([]*Response, 0, len(carriers))
	for _, resp := range slots {
		if resp != nil {
			results = append(results, resp)
		}
	}
	return results, errs
}
