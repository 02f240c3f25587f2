package fingerprint

import "fmt"

// Peak is a (frame, bin) location whose power dominates its neighborhood.
type Peak struct {
	Time      int     `json:"time"`
	Frequency int     `json:"frequency"`
	Power     float64 `json:"power"`
}

// Equal reports whether two peaks sit at the same frame and bin. Power is
// not part of a peak's identity.
func (p Peak) Equal(o Peak) bool {
	return p.Time == o.Time && p.Frequency == o.Frequency
}

// Less orders peaks by time, then frequency.
func (p Peak) Less(o Peak) bool {
	if p.Time != o.Time {
		return p.Time < o.Time
	}
	return p.Frequency < o.Frequency
}

func (p Peak) String() string {
	return fmt.Sprintf("peak(t=%d f=%d p=%.2f)", p.Time, p.Frequency, p.Power)
}
