// Package assessment holds the measurements entered for a patient and the
// metrics derived from them.
package assessment

// Store owns the profile being edited in one session together with its
// derived metrics. It is not safe for concurrent use; the owning session
// serializes access.
type Store struct {
	profile Profile
	derived Derived

	// recomputations counts BMI derivations, for tests.
	recomputations int
}

// NewStore returns a store seeded with p and the BMI derived from it.
func NewStore(p Profile) *Store {
	s := &Store{profile: p}
	s.recompute()
	return s
}

// Set updates exactly one field. BMI is recomputed only when weight or
// height actually changes.
func (s *Store) Set(f Field, v float64) error {
	before, err := s.profile.Value(f)
	if err != nil {
		return err
	}
	if err := s.profile.set(f, v); err != nil {
		return err
	}

	if (f == FieldWeight || f == FieldHeight) && before != v {
		s.recompute()
	}
	return nil
}

// Profile returns a copy of the current measurements.
func (s *Store) Profile() Profile {
	return s.profile
}

// Derived returns the current derived metrics.
func (s *Store) Derived() Derived {
	return s.derived
}

func (s *Store) recompute() {
	s.derived.BMI = RecomputeBMI(s.profile.Weight, s.profile.Height, s.derived.BMI)
	s.recomputations++
}
