// Package ensemble models references to real and delta ensembles.
package ensemble

import "fmt"

// Ref points at an ensemble: either a RealEnsemble served by a provider or a
// Delta of two real ensembles. The set of implementations is closed.
type Ref interface {
	// Name is the display name.
	Name() string
	ref()
}

// RealEnsemble references an ensemble exposed by a vector provider.
type RealEnsemble struct {
	Ensemble string `json:"ensemble" yaml:"ensemble"`
}

func (r RealEnsemble) Name() string { return r.Ensemble }
func (RealEnsemble) ref()           {}

// Delta is a virtual ensemble whose values are A minus B, realization-wise
// and date-wise. Two deltas are equal when A and B are equal.
type Delta struct {
	A string `json:"ensemble_a" yaml:"ensemble_a"`
	B string `json:"ensemble_b" yaml:"ensemble_b"`
}

// Name returns the canonical display name "(A)-(B)".
func (d Delta) Name() string { return fmt.Sprintf("(%s)-(%s)", d.A, d.B) }
func (Delta) ref()           {}

// Validate rejects deltas with a missing side.
func (d Delta) Validate() error {
	if d.A == "" || d.B == "" {
		return fmt.Errorf("delta ensemble needs two ensemble names, got %q and %q", d.A, d.B)
	}
	return nil
}

// DeltaSet holds user created delta ensembles in creation order, without
// duplicates.
type DeltaSet struct {
	items []Delta
}

// NewDeltaSet returns a set holding the given deltas, duplicates dropped.
func NewDeltaSet(deltas ...Delta) *DeltaSet {
	s := &DeltaSet{}
	for _, d := range deltas {
		s.Add(d)
	}
	return s
}

// Add inserts d and reports whether it was not already present.
func (s *DeltaSet) Add(d Delta) bool {
	if s.Contains(d) {
		return false
	}
	s.items = append(s.items, d)
	return true
}

// Remove deletes d and reports whether it was present.
func (s *DeltaSet) Remove(d Delta) bool {
	for i, item := range s.items {
		if item == d {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether d is in the set.
func (s *DeltaSet) Contains(d Delta) bool {
	for _, item := range s.items {
		if item == d {
			return true
		}
	}
	return false
}

// Items returns the deltas in creation order.
func (s *DeltaSet) Items() []Delta {
	return append([]Delta(nil), s.items...)
}

// Len returns the number of deltas.
func (s *DeltaSet) Len() int { return len(s.items) }
