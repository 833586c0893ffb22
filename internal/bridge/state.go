package bridge

import (
	"bytes"
	"html/template"
	"sync"
)

// Region is one externally observable projection of domain state: an element with a fixed id.
// HTML holds the complete element markup, id attribute included.
type Region struct {
	ID   string
	HTML template.HTML
}

// Regions is the rendered DOM surface of an app, in page order.
type Regions []Region

// Get returns the region with id.
func (r Regions) Get(id string) (Region, bool) {
	for _, region := range r {
		if region.ID == id {
			return region, true
		}
	}
	return Region{}, false
}

// IDs lists region ids in page order.
func (r Regions) IDs() []string {
	ids := make([]string, len(r))
	for i, region := range r {
		ids[i] = region.ID
	}
	return ids
}

// State is the single owner of one domain state value. Every mutation, whether it comes from a
// tool handler or a UI action, goes through Update, which serialises writers and re-renders.
type State[S any] struct {
	mu       sync.Mutex
	value    S
	initial  func() S
	render   func(S) Regions
	regions  Regions
	onRender []func(Regions)

	// seq numbers renders under mu; hooks see them in that order.
	seq       uint64
	delivered uint64
	hookMu    sync.Mutex
	hookTurn  *sync.Cond
}

// NewState creates a state holding initial() and renders it once.
func NewState[S any](initial func() S, render func(S) Regions) *State[S] {
	s := &State[S]{initial: initial, render: render, value: initial()}
	s.regions = render(s.value)
	s.hookTurn = sync.NewCond(&s.hookMu)
	return s
}

// OnRender registers a callback run after every render, outside the state lock. Callbacks
// observe renders in mutation order and must not update the same State.
func (s *State[S]) OnRender(fn func(Regions)) {
	s.mu.Lock()
	s.onRender = append(s.onRender, fn)
	s.mu.Unlock()
}

// Get returns the current value. Collections inside S are never edited in place, so the
// returned value stays consistent after later updates.
func (s *State[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Update replaces the value with fn(current). On error the value is left untouched and no render
// happens. fn runs under the state lock and must not call back into the same State.
func (s *State[S]) Update(fn func(S) (S, error)) (S, error) {
	s.mu.Lock()
	next, err := fn(s.value)
	if err != nil {
		current := s.value
		s.mu.Unlock()
		return current, err
	}
	s.value = next
	regions := s.render(next)
	s.regions = regions
	hooks := s.onRender
	s.seq++
	ticket := s.seq
	s.mu.Unlock()

	s.deliver(ticket, regions, hooks)
	return next, nil
}

// Render recomputes the regions from the current value.
func (s *State[S]) Render() Regions {
	s.mu.Lock()
	regions := s.render(s.value)
	s.regions = regions
	hooks := s.onRender
	s.seq++
	ticket := s.seq
	s.mu.Unlock()

	s.deliver(ticket, regions, hooks)
	return regions
}

// deliver runs hooks once every earlier render has been delivered.
func (s *State[S]) deliver(ticket uint64, regions Regions, hooks []func(Regions)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	for s.delivered != ticket-1 {
		s.hookTurn.Wait()
	}
	defer func() {
		s.delivered = ticket
		s.hookTurn.Broadcast()
	}()
	for _, hook := range hooks {
		hook(regions)
	}
}

// Regions returns the last rendered regions.
func (s *State[S]) Regions() Regions {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Regions, len(s.regions))
	copy(out, s.regions)
	return out
}

// Reset restores the documented initial value.
func (s *State[S]) Reset() S {
	next, _ := s.Update(func(S) (S, error) { return s.initial(), nil })
	return next
}

// Execute runs name from t with data and returns the markup. Template errors are rendered
// escaped in place of the fragment.
func Execute(t *template.Template, name string, data interface{}) template.HTML {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return template.HTML(template.HTMLEscapeString("render " + name + ": " + err.Error()))
	}
	return template.HTML(buf.String())
}
