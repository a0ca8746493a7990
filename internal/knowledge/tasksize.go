package knowledge

import (
	"strings"

	"kaizen/internal/errors"
)

// TaskSize is the ordinal complexity class of an entry. TaskSizeNone marks a
// principle, which every filter admits.
type TaskSize int

const (
	TaskSizeNone TaskSize = iota
	TaskSizeXS
	TaskSizeS
	TaskSizeM
	TaskSizeL
	TaskSizeXL
)

var taskSizeNames = [...]string{"", "XS", "S", "M", "L", "XL"}

// String returns the size label, or "" for TaskSizeNone.
func (s TaskSize) String() string {
	if s < TaskSizeNone || s > TaskSizeXL {
		return "?"
	}
	return taskSizeNames[s]
}

// IsNone reports whether s is the principle marker.
func (s TaskSize) IsNone() bool {
	return s == TaskSizeNone
}

// ParseTaskSize parses XS..XL case-insensitively. The empty string parses to
// TaskSizeNone. Anything else is an InvalidTaskSizeFilter error.
func ParseTaskSize(value string) (TaskSize, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return TaskSizeNone, nil
	}
	for i := TaskSizeXS; i <= TaskSizeXL; i++ {
		if taskSizeNames[i] == v {
			return i, nil
		}
	}
	return TaskSizeNone, errors.NewInvalidTaskSizeError(value)
}

// MarshalText implements encoding.TextMarshaler.
func (s TaskSize) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TaskSize) UnmarshalText(b []byte) error {
	parsed, err := ParseTaskSize(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SizeMode selects how a task-size filter compares against entry sizes.
type SizeMode string

const (
	// SizeModeCeiling admits entries at or below the filter.
	SizeModeCeiling SizeMode = "ceiling"
	// SizeModeExact admits entries equal to the filter.
	SizeModeExact SizeMode = "exact"
)

// SizeFilter decides per-entry inclusion for an optional task-size filter.
type SizeFilter struct {
	Size TaskSize
	Mode SizeMode
}

// Admits reports whether an entry of the given size passes the filter.
// An absent filter admits everything and a sizeless entry passes every filter.
func (f SizeFilter) Admits(entry TaskSize) bool {
	if f.Size.IsNone() || entry.IsNone() {
		return true
	}
	if f.Mode == SizeModeExact {
		return entry == f.Size
	}
	return entry <= f.Size
}
