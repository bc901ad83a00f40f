package histo

import (
	"fmt"
	"sync"
)

// Registry is a named set of histograms owned by one analysis pass or one
// worker.
type Registry struct {
	mu    sync.Mutex
	hists map[string]*Sparse
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{hists: make(map[string]*Sparse)}
}

// Define registers a histogram. Defining an existing name with identical
// axes returns the existing histogram.
func (r *Registry) Define(name string, axes ...Axis) (*Sparse, error) {
	s, err := NewSparse(name, axes...)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.hists[name]; ok {
		if !existing.Compatible(s) {
			return nil, fmt.Errorf("%w: %q redefined", ErrIncompatible, name)
		}
		return existing, nil
	}
	r.hists[name] = s
	r.order = append(r.order, name)
	return s, nil
}

// MustDefine is like Define but panics on error. Use it for histogram
// layouts fixed at compile time.
func (r *Registry) MustDefine(name string, axes ...Axis) *Sparse {
	s, err := r.Define(name, axes...)
	if err != nil {
		panic(err)
	}
	return s
}

// Get returns the named histogram or nil.
func (r *Registry) Get(name string) *Sparse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hists[name]
}

// Names returns histogram names in definition order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Merge adds every histogram of o into r. Histograms missing from r are
// copied. Merging is commutative on cell contents.
func (r *Registry) Merge(o *Registry) error {
	for _, name := range o.Names() {
		src := o.Get(name)
		r.mu.Lock()
		dst, ok := r.hists[name]
		if !ok {
			r.hists[name] = src.Clone()
			r.order = append(r.order, name)
			r.mu.Unlock()
			continue
		}
		r.mu.Unlock()
		if err := dst.Merge(src); err != nil {
			return err
		}
	}
	return nil
}
