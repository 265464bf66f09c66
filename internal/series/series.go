package series

import "github.com/google/uuid"

// Sample is one reading, timestamped in seconds since session start.
type Sample struct {
	Timestamp float64
	Value     float64
}

// Series is a labeled, acquisition-ordered buffer of samples.
type Series struct {
	ID      uuid.UUID
	Label   string
	Samples []Sample
}

// New returns an empty series with a fresh identity.
func New(label string) Series {
	return Series{
		ID:    uuid.New(),
		Label: label,
	}
}

// Len returns the number of samples.
func (s Series) Len() int {
	return len(s.Samples)
}

// Last returns the most recent sample, if any.
func (s Series) Last() (Sample, bool) {
	if len(s.Samples) == 0 {
		return Sample{}, false
	}

	return s.Samples[len(s.Samples)-1], true
}

// Cleared returns an empty series that keeps the label and identity.
func (s Series) Cleared() Series {
	return Series{
		ID:    s.ID,
		Label: s.Label,
	}
}

// Clone returns a deep copy so the receiver can keep appending without
// the copy observing it.
func (s Series) Clone() Series {
	c := Series{
		ID:    s.ID,
		Label: s.Label,
	}
	if len(s.Samples) > 0 {
		c.Samples = make([]Sample, len(s.Samples))
		copy(c.Samples, s.Samples)
	}

	return c
}

// View returns a copy that shares sample storage with s. Samples appended
// to s afterwards are not visible through the view. Neither side may
// modify existing samples.
func (s Series) View() Series {
	n := len(s.Samples)
	s.Samples = s.Samples[:n:n]

	return s
}

// CloneAll deep-copies a collection of series.
func CloneAll(all []Series) []Series {
	out := make([]Series, len(all))
	for i, s := range all {
		out[i] = s.Clone()
	}

	return out
}

// TotalSamples counts samples across all series.
func TotalSamples(all []Series) int {
	n := 0
	for _, s := range all {
		n += len(s.Samples)
	}

	return n
}
