package edges

// IDSet is an insertion-ordered set of raw identifiers
type IDSet struct {
	seen  map[string]struct{}
	items []string
}

func newIDSet() *IDSet {
	return &IDSet{seen: make(map[string]struct{})}
}

// Add inserts id unless it is already present
func (s *IDSet) Add(id string) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.items = append(s.items, id)
}

// Contains reports whether id is in the set
func (s *IDSet) Contains(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of distinct identifiers
func (s *IDSet) Len() int {
	return len(s.items)
}

// Items returns the identifiers in first-seen order
func (s *IDSet) Items() []string {
	return s.items
}

// Unresolved accumulates, per node type, the identifiers that failed both
// lookup tiers
type Unresolved struct {
	sets  map[string]*IDSet
	order []string
}

// NewUnresolved creates an empty accumulator
func NewUnresolved() *Unresolved {
	return &Unresolved{sets: make(map[string]*IDSet)}
}

func (u *Unresolved) set(nodeType string) *IDSet {
	s, ok := u.sets[nodeType]
	if !ok {
		s = newIDSet()
		u.sets[nodeType] = s
		u.order = append(u.order, nodeType)
	}
	return s
}

// Add records an unresolved identifier for a node type
func (u *Unresolved) Add(nodeType, id string) {
	u.set(nodeType).Add(id)
}

// Touch registers a node type without adding identifiers
func (u *Unresolved) Touch(nodeType string) {
	u.set(nodeType)
}

// Merge folds other into u. Types keep their first-seen order.
func (u *Unresolved) Merge(other *Unresolved) {
	if other == nil {
		return
	}
	for _, nodeType := range other.order {
		dst := u.set(nodeType)
		for _, id := range other.sets[nodeType].items {
			dst.Add(id)
		}
	}
}

// Get returns the set for a node type, or nil
func (u *Unresolved) Get(nodeType string) *IDSet {
	return u.sets[nodeType]
}

// Types returns every touched node type in first-seen order
func (u *Unresolved) Types() []string {
	return u.order
}
