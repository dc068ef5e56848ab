package watchdog

import (
	"fmt"
	"regexp"
)

// StatPattern is a labelled regex counted across every section.
type StatPattern struct {
	Label  string
	Regexp string
}

type counter struct {
	label string
	re    *regexp.Regexp
	count int
}

// Stats counts regex matches over every line ingested by a supervisor.
// Every match in a line counts, not just matching lines.
type Stats struct {
	counters []counter
}

// NewStats compiles the patterns. An invalid pattern is an error.
func NewStats(patterns []StatPattern) (*Stats, error) {
	s := &Stats{}
	for _, p := range patterns {
		re, err := regexp.Compile(p.Regexp)
		if err != nil {
			return nil, fmt.Errorf("stats %q: %w", p.Label, err)
		}
		s.counters = append(s.counters, counter{label: p.Label, re: re})
	}
	return s, nil
}

// Scan adds the matches found in line.
func (s *Stats) Scan(line string) {
	for i := range s.counters {
		if n := len(s.counters[i].re.FindAllStringIndex(line, -1)); n > 0 {
			s.counters[i].count += n
		}
	}
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	for i := range s.counters {
		s.counters[i].count = 0
	}
}

// Len is the number of patterns.
func (s *Stats) Len() int { return len(s.counters) }

// StatCount is one label's running total.
type StatCount struct {
	Label string
	Count int
}

// Counts returns totals in declaration order.
func (s *Stats) Counts() []StatCount {
	out := make([]StatCount, len(s.counters))
	for i, c := range s.counters {
		out[i] = StatCount{Label: c.label, Count: c.count}
	}
	return out
}

// Count returns the total for label, or zero when unknown.
func (s *Stats) Count(label string) int {
	for _, c := range s.counters {
		if c.label == label {
			return c.count
		}
	}
	return 0
}
