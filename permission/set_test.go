package permission

import (
	"reflect"
	"testing"
)

func TestSetDeduplicatesAndSorts(t *testing.T) {
	s := NewSet("Y.Write", "X.Read", "X.Read")
	got := s.Names()
	want := []string{"X.Read", "Y.Write"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestWildcardSet(t *testing.T) {
	s := All()
	if !s.IsAll() {
		t.Fatal("All() should be the wildcard set")
	}
	if !s.Has("Anything.AtAll") {
		t.Error("wildcard must cover every name")
	}
	if got := s.Names(); len(got) != 1 || got[0] != Wildcard {
		t.Errorf("wildcard serializes to [*], got %v", got)
	}
}

func TestHasEnumerated(t *testing.T) {
	s := NewSet("X.Read")
	if !s.Has("X.Read") {
		t.Error("expected X.Read to be covered")
	}
	if s.Has("Y.Write") {
		t.Error("Y.Write should not be covered")
	}
}

func TestHasAll(t *testing.T) {
	s := NewSet("X.Read", "Y.Write")
	if !s.HasAll("X.Read", "Y.Write") {
		t.Error("expected both names to be covered")
	}
	if s.HasAll("X.Read", "Z.Delete") {
		t.Error("Z.Delete should not be covered")
	}
	if !All().HasAll("A.B", "C.D") {
		t.Error("wildcard must cover every combination")
	}
}

func TestSetFromNamesRoundTrip(t *testing.T) {
	if !SetFromNames([]string{Wildcard}).IsAll() {
		t.Error("[*] should rebuild the wildcard set")
	}
	s := SetFromNames([]string{"A.Read", "B.Write"})
	if s.IsAll() || !s.Has("A.Read") || !s.Has("B.Write") {
		t.Errorf("unexpected rebuilt set: %v", s.Names())
	}
}
