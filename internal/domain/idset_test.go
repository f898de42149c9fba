package domain

import "testing"

func TestIDSetAddDeduplicates(t *testing.T) {
	s := NewIDSet()
	if !s.Add("job-a") {
		t.Fatalf("first add of job-a should report new")
	}
	if s.Add("job-a") {
		t.Fatalf("second add of job-a should be a no-op")
	}
	if s.Add(" job-a ") {
		t.Fatalf("whitespace-padded duplicate should be a no-op")
	}
	if s.Add("") {
		t.Fatalf("blank id should be ignored")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestIDSetPreservesInsertionOrder(t *testing.T) {
	s := NewIDSet("b", "a", "c", "a")
	got := s.Values()
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("Values = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIDSetEncodeDecodeRoundTrip(t *testing.T) {
	s := NewIDSet("x", "y", "z")
	decoded := DecodeIDSet(s.Encode())
	if decoded.Len() != 3 {
		t.Fatalf("decoded Len = %d, want 3", decoded.Len())
	}
	if !decoded.Has("y") {
		t.Fatalf("decoded set missing y")
	}
	if DecodeIDSet("").Len() != 0 {
		t.Fatalf("empty string should decode to empty set")
	}
}

func TestIDSetNilReceiverIsEmpty(t *testing.T) {
	var s *IDSet
	if s.Len() != 0 || s.Has("a") || s.Encode() != "" || s.Values() != nil {
		t.Fatalf("nil IDSet should behave as empty")
	}
}
