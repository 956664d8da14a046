package comparer

import (
	"errors"
	"testing"
)

func TestDefaultResolve(t *testing.T) {
	for _, want := range Builtins() {
		got, err := Default.Resolve(want.ID)
		if err != nil {
			t.Fatalf("Resolve(%d) failed: %v", want.ID, err)
		}
		if !got.Equal(want) || got.Name != want.Name {
			t.Errorf("Resolve(%d) = %v, want %v", want.ID, got, want)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := Default.Resolve(999)
	if !errors.Is(err, ErrUnknownComparer) {
		t.Fatalf("expected ErrUnknownComparer, got %v", err)
	}
}

func TestAllOrderedAndCopied(t *testing.T) {
	r := MustRegistry(LessThan, Equal, Contains)
	all := r.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 comparers, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Errorf("comparers not ordered by id: %v", all)
		}
	}

	all[0] = Comparer{ID: 42, Name: "Mutated"}
	if _, err := r.Resolve(42); err == nil {
		t.Error("mutating All() result must not change the registry")
	}
}

func TestNewRegistryRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		cs   []Comparer
	}{
		{"duplicate id", []Comparer{Equal, {ID: 1, Name: "Other"}}},
		{"zero id", []Comparer{{ID: 0, Name: "Zero"}}},
		{"blank name", []Comparer{{ID: 50, Name: "  "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.cs...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestComparerEqualByID(t *testing.T) {
	if !Equal.Equal(Comparer{ID: 1, Name: "renamed"}) {
		t.Error("comparers with the same id must be equal")
	}
	if Equal.Equal(NotEqual) {
		t.Error("comparers with different ids must differ")
	}
	if !(Comparer{}).IsZero() {
		t.Error("zero comparer must report IsZero")
	}
}
