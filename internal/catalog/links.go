package catalog

// LinkEdge is a directed dependency edge between two canonical paths.
// A link to a missing or unresolvable file is still a valid edge, with
// Unresolved set; a reference back onto the active discovery path is still
// recorded, with CycleClosing set.
type LinkEdge struct {
	From string `json:"from"`
	To   string `json:"to"`

	// External is true when To lies outside the project root
	External bool `json:"external,omitempty"`

	// Unresolved is true when To does not exist on disk
	Unresolved bool `json:"unresolved,omitempty"`

	// CycleClosing is true when the edge was refused enqueueing because it
	// closed a cycle back onto the active discovery path
	CycleClosing bool `json:"cycleClosing,omitempty"`
}

// Registry owns all LinkEdges for a run and tracks the set of paths on the
// active discovery path (ancestors of the node currently being processed),
// which is what makes cycle detection a back-edge test: a diamond reference
// to an already-finalized file is not a cycle and is never refused.
type Registry struct {
	edges  []LinkEdge
	seen   map[string]map[string]bool // from -> to -> recorded
	active map[string]struct{}
}

// NewRegistry creates an empty link registry
func NewRegistry() *Registry {
	return &Registry{
		seen:   make(map[string]map[string]bool),
		active: make(map[string]struct{}),
	}
}

// RegisterEdge appends an edge unless the (From, To) pair is already
// present. Duplicates are a no-op, not an error; the first registration
// wins, including its flags. Returns whether the edge was added.
func (r *Registry) RegisterEdge(edge LinkEdge) bool {
	if r.seen[edge.From][edge.To] {
		return false
	}
	if r.seen[edge.From] == nil {
		r.seen[edge.From] = make(map[string]bool)
	}
	r.seen[edge.From][edge.To] = true
	r.edges = append(r.edges, edge)
	return true
}

// WouldCreateCycle reports whether linking from -> to closes a cycle back to
// a node still being processed, i.e. to is an ancestor of from on the active
// discovery path. A self-reference counts, since from is active while its
// own references are examined.
func (r *Registry) WouldCreateCycle(from, to string) bool {
	_ = from // the test is pure ancestor membership of the target
	_, ok := r.active[to]
	return ok
}

// PushActive marks a path as being on the active discovery path
func (r *Registry) PushActive(path string) {
	r.active[path] = struct{}{}
}

// PopActive releases active-path membership. Called on every exit path,
// including extractor failure, so a failed branch never poisons cycle
// detection for its siblings.
func (r *Registry) PopActive(path string) {
	delete(r.active, path)
}

// ClearActive empties the active set. Used on cancellation so a partial run
// leaves the registry consistent.
func (r *Registry) ClearActive() {
	r.active = make(map[string]struct{})
}

// ActiveLen returns the size of the active discovery path
func (r *Registry) ActiveLen() int {
	return len(r.active)
}

// EdgesFrom returns the edges whose source is path, in registration order
func (r *Registry) EdgesFrom(path string) []LinkEdge {
	var out []LinkEdge
	for _, e := range r.edges {
		if e.From == path {
			out = append(out, e)
		}
	}
	return out
}

// AllEdges returns all edges in registration order. The returned slice is a
// copy; mutating it does not affect the registry.
func (r *Registry) AllEdges() []LinkEdge {
	out := make([]LinkEdge, len(r.edges))
	copy(out, r.edges)
	return out
}

// Len returns the number of registered edges
func (r *Registry) Len() int {
	return len(r.edges)
}
