package session

import (
	"fmt"
	"time"

	"codeberg.org/mutker/labctl/internal/series"
)

// Phase is the coarse lifecycle state of a session.
type Phase int

const (
	Idle Phase = iota
	Running
	Completed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a read-only snapshot of a session. Remaining is nil when no
// target duration applies.
type State struct {
	Phase     Phase
	Elapsed   time.Duration
	Remaining *time.Duration
	Series    []series.Series
}

func (s State) clone() State {
	out := State{
		Phase:   s.Phase,
		Elapsed: s.Elapsed,
		Series:  series.CloneAll(s.Series),
	}
	if s.Remaining != nil {
		out.Remaining = durationPtr(*s.Remaining)
	}

	return out
}

// FormatDuration renders d as zero-padded minutes and seconds, "05:07".
// Minutes are not wrapped into hours.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)

	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
