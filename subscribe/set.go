package subscribe

// Set is an insertion-ordered collection of unique addresses. It lives for a
// single scan: created empty, mutated once per qualifying message, then
// discarded. Nothing about it is persisted between runs.
type Set struct {
	order   []string
	present map[string]struct{}
}

func NewSet() *Set {
	return &Set{present: make(map[string]struct{})}
}

func (s *Set) Contains(addr string) bool {
	_, ok := s.present[addr]
	return ok
}

// Add appends addr if it is not already a member.
func (s *Set) Add(addr string) {
	if s.Contains(addr) {
		return
	}
	s.present[addr] = struct{}{}
	s.order = append(s.order, addr)
}

// Remove deletes addr; removing a non-member is a no-op.
func (s *Set) Remove(addr string) {
	if !s.Contains(addr) {
		return
	}
	delete(s.present, addr)
	for i, a := range s.order {
		if a == addr {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Set) Len() int {
	return len(s.order)
}

// Addresses returns the members in insertion order. The slice is a copy.
func (s *Set) Addresses() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
