package coordinator

// seenSet records presented article IDs. It is bounded: once full, adding a
// new ID evicts the oldest one, so a long-lived session cannot grow it
// without limit.
type seenSet struct {
	ids  map[string]struct{}
	ring []string
	head int
}

func newSeenSet(limit int) *seenSet {
	return &seenSet{
		ids:  make(map[string]struct{}, limit),
		ring: make([]string, limit),
	}
}

func (s *seenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *seenSet) Add(id string) {
	if id == "" || s.Has(id) {
		return
	}
	if old := s.ring[s.head]; old != "" {
		delete(s.ids, old)
	}
	s.ring[s.head] = id
	s.head = (s.head + 1) % len(s.ring)
	s.ids[id] = struct{}{}
}

func (s *seenSet) Len() int {
	return len(s.ids)
}
