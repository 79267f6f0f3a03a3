package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Schedule lists the seconds of audio each attempt unlocks. The first
// element is audible before any attempt is made.
type Schedule []int

// DefaultSchedule is the classic six-attempt reveal window
var DefaultSchedule = Schedule{1, 1, 3, 4, 5, 2}

// ParseSchedule reads a comma separated list such as "1,1,3,4,5,2"
func ParseSchedule(s string) (Schedule, error) {
	var sched Schedule
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q is not a number", ErrInvalidSchedule, part)
		}
		sched = append(sched, n)
	}
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	return sched, nil
}

// Validate checks that the schedule is non-empty and every segment is positive
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no segments", ErrInvalidSchedule)
	}
	for i, seg := range s {
		if seg <= 0 {
			return fmt.Errorf("%w: segment %d is %d", ErrInvalidSchedule, i, seg)
		}
	}
	return nil
}

// Unlocked returns the seconds audible after n attempts: the sum of
// segments 0..n inclusive. n is clamped to the schedule.
func (s Schedule) Unlocked(n int) int {
	if len(s) == 0 {
		return 0
	}
	if n < 0 {
		n = 0
	}
	if n >= len(s) {
		n = len(s) - 1
	}
	total := 0
	for _, seg := range s[:n+1] {
		total += seg
	}
	return total
}

// Increment is the extra audio the next skip reveals after n attempts,
// Unlocked(n+1) - Unlocked(n), shown as "+Xs". Once the window is fully
// open it reports 1 second.
func (s Schedule) Increment(n int) int {
	if n < 0 {
		n = 0
	}
	if n+1 >= len(s) {
		return 1
	}
	return s.Unlocked(n+1) - s.Unlocked(n)
}

// Total is the full reveal window
func (s Schedule) Total() int {
	return s.Unlocked(len(s) - 1)
}

// String renders the schedule in the form ParseSchedule accepts
func (s Schedule) String() string {
	parts := make([]string, len(s))
	for i, seg := range s {
		parts[i] = strconv.Itoa(seg)
	}
	return strings.Join(parts, ",")
}

// Segment is one block of the playback timeline
type Segment struct {
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Unlocked bool    `json:"unlocked"`
	Played   bool    `json:"played"`
	Current  bool    `json:"current"`
	Fill     float64 `json:"fill"`
	Width    float64 `json:"width"`
}

// Timeline lays the schedule out as segments for rendering. Width is the
// segment's share of the total window and Fill is how much of it the
// playback position has covered.
func Timeline(s Schedule, unlocked int, position float64) []Segment {
	total := s.Total()
	segments := make([]Segment, 0, len(s))
	start := 0
	for _, seg := range s {
		end := start + seg
		t := Segment{
			Start:    start,
			End:      end,
			Unlocked: end <= unlocked,
			Played:   position >= float64(end),
			Current:  position >= float64(start) && position < float64(end),
		}
		switch {
		case t.Played:
			t.Fill = 1
		case t.Current:
			t.Fill = (position - float64(start)) / float64(seg)
		}
		if total > 0 {
			t.Width = float64(seg) / float64(total)
		}
		segments = append(segments, t)
		start = end
	}
	return segments
}
