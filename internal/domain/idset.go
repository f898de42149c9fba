package domain

import "strings"

// IDSet is an ordered set of provider job ids. Insertion order is preserved
// so the encoded form is stable across read-modify-write cycles; membership
// is what makes duplicate webhook deliveries a no-op for the tally.
type IDSet struct {
	order []string
	index map[string]struct{}
}

// NewIDSet builds a set from the given ids, dropping duplicates and blanks.
func NewIDSet(ids ...string) *IDSet {
	s := &IDSet{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was not already present. Blank ids
// are ignored.
func (s *IDSet) Add(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Has reports whether id is a member.
func (s *IDSet) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[strings.TrimSpace(id)]
	return ok
}

// Len returns the number of distinct ids.
func (s *IDSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Values returns the ids in insertion order. The slice is a copy.
func (s *IDSet) Values() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Encode serializes the set one id per line, the storage form used for
// multi-value record fields.
func (s *IDSet) Encode() string {
	if s == nil {
		return ""
	}
	return strings.Join(s.order, "\n")
}

// DecodeIDSet parses the line-per-id storage form produced by Encode.
func DecodeIDSet(raw string) *IDSet {
	return NewIDSet(strings.Split(raw, "\n")...)
}
