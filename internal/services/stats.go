package services

import (
	"sort"
	"strings"
)

// median of vals; the mean of the two middle values for even counts.
func median(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

// samples groups numeric observations by key.
type samples map[string][]float64

func (s samples) add(key string, v float64) {
	if key == "" {
		return
	}
	s[key] = append(s[key], v)
}

// median returns the group median when the group has at least min observations.
func (s samples) median(key string, minN int) (float64, bool) {
	vals := s[key]
	if key == "" || len(vals) < minN {
		return 0, false
	}
	return median(vals)
}

// tally counts string observations.
type tally map[string]int

func (t tally) add(v string) {
	if v != "" {
		t[v]++
	}
}

func (t tally) total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// top returns the most frequent value; ties go to the lexicographically smallest.
func (t tally) top() (string, int, bool) {
	best, bestN := "", 0
	for v, n := range t {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best, bestN, bestN > 0
}

// tallies counts string observations per group key.
type tallies map[string]tally

func (t tallies) add(key, v string) {
	if key == "" || v == "" {
		return
	}
	if t[key] == nil {
		t[key] = tally{}
	}
	t[key].add(v)
}

// majority returns the group's only value, or its most common one when that
// occurs at least minCount times.
func (t tallies) majority(key string, minCount int) (string, bool) {
	g := t[key]
	if len(g) == 0 {
		return "", false
	}
	v, n, _ := g.top()
	if len(g) == 1 || n >= minCount {
		return v, true
	}
	return "", false
}

// fold is the case-insensitive grouping key for names.
func fold(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// prefix returns the first n characters of a load number, or "" when it is shorter.
func prefix(load string, n int) string {
	r := []rune(strings.TrimSpace(load))
	if n <= 0 || len(r) < n {
		return ""
	}
	return string(r[:n])
}
