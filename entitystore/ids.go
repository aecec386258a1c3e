package entitystore

import (
	"strconv"

	"github.com/google/uuid"
)

// IDGenerator assigns ids to records created without one.
// It is always called with the collection write lock held.
type IDGenerator interface {
	NextID(collection string, existing []Record) string
}

// SequenceIDs issues "1", "2", ... per collection: one more than the highest
// numeric id present, so ids freed by deletes are never handed out again
// while a higher id survives.
type SequenceIDs struct{}

func (SequenceIDs) NextID(_ string, existing []Record) string {
	var max int64
	for _, r := range existing {
		if n, err := strconv.ParseInt(r.ID(), 10, 64); err == nil && n > max {
			max = n
		}
	}
	if int64(len(existing)) > max {
		max = int64(len(existing))
	}
	return strconv.FormatInt(max+1, 10)
}

// UUIDs issues random v4 UUIDs.
type UUIDs struct{}

func (UUIDs) NextID(string, []Record) string {
	return uuid.New().String()
}

// NewIDGenerator maps a config name (sequence | uuid) to a generator.
func NewIDGenerator(name string) IDGenerator {
	if name == "uuid" {
		return UUIDs{}
	}
	return SequenceIDs{}
}
