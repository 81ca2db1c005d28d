// Package schedule defines the schedule of recurring plugin actions
package schedule

import (
	"fmt"
	"github.com/marcsantiago/gocron"
	"strings"
	"time"
)

// Definition represents a recurring schedule
type Definition struct {
	// Interval value (every 15 minutes is expressed with an interval of 15 and a unit of "minutes")
	Interval uint64

	// Valid time units are: "weeks", "days", "hours", "minutes", "seconds"
	Unit string

	// Optional "at time" value (i.e. "10:30"), only relevant to days and weeks
	AtTime string
}

// Unit values
const (
	Weeks   = "weeks"
	Days    = "days"
	Hours   = "hours"
	Minutes = "minutes"
	Seconds = "seconds"
)

var unitDurations = []struct {
	unit     string
	duration time.Duration
}{
	{Weeks, 7 * 24 * time.Hour},
	{Days, 24 * time.Hour},
	{Hours, time.Hour},
	{Minutes, time.Minute},
	{Seconds, time.Second},
}

// Every returns the definition of a schedule repeating every d, expressed in the largest
// unit that divides d exactly. Durations under a second are rounded up to one second
func Every(d time.Duration) (sd Definition) {
	if d < time.Second {
		return Definition{Interval: 1, Unit: Seconds}
	}

	d = d.Truncate(time.Second)
	for _, ud := range unitDurations {
		if d%ud.duration == 0 {
			return Definition{Interval: uint64(d / ud.duration), Unit: ud.unit}
		}
	}

	return Definition{Interval: uint64(d / time.Second), Unit: Seconds}
}

// String returns a human-friendly string for the Definition
func (sd Definition) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Every ")

	if sd.Interval == 1 {
		fmt.Fprintf(&b, "%s", strings.TrimSuffix(sd.Unit, "s"))
	} else {
		fmt.Fprintf(&b, "%d %s", sd.Interval, sd.Unit)
	}

	if sd.AtTime != "" {
		fmt.Fprintf(&b, " at %s", sd.AtTime)
	}

	return b.String()
}

// NewJob sets up the gocron.Job with the schedule and leaves the task undefined for the caller to set up
func NewJob(s *gocron.Scheduler, sd Definition) (j *gocron.Job, err error) {
	if sd.Interval == 0 {
		return nil, fmt.Errorf("invalid schedule [%s]: interval must be positive", sd)
	}

	j = s.Every(sd.Interval, false)

	switch sd.Unit {
	case Weeks:
		j = j.Weeks()
	case Days:
		j = j.Days()
	case Hours:
		j = j.Hours()
	case Minutes:
		j = j.Minutes()
	case Seconds:
		j = j.Seconds()
	default:
		return nil, fmt.Errorf("invalid schedule [%s]: unknown unit [%s]", sd, sd.Unit)
	}

	if sd.AtTime != "" {
		j = j.At(sd.AtTime)
	}

	if j.Err() != nil {
		return nil, j.Err()
	}

	return j, nil
}
