package core

import (
	"fmt"
	"math"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// RoundCents rounds a money amount to 2 decimal places.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// Ordering is a single `?ordering=` term: "name" or "-name".
type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	if ord.Ascending {
		return ord.Field
	}
	return "-" + ord.Field
}

// NextNumber formats a human readable number such as STU0007 from seq,
// moving past numbers already taken (seq is count-based and records may have been deleted).
func NextNumber(prefix string, seq int, taken func(string) bool) string {
	if seq < 1 {
		seq = 1
	}
	for {
		n := fmt.Sprintf("%s%04d", prefix, seq)
		if taken == nil || !taken(n) {
			return n
		}
		seq++
	}
}
