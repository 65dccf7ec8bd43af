package thumbnail

import "strings"

// Status is the clinical classification attached to a thumbnail.
type Status string

const (
	StatusNormal  Status = "normal"
	StatusHigh    Status = "high"
	StatusLow     Status = "low"
	StatusUnknown Status = "unknown"
)

// ParseStatus matches text against the known statuses, ignoring case
// and surrounding whitespace.
func ParseStatus(text string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(text))) {
	case StatusNormal:
		return StatusNormal, true
	case StatusHigh:
		return StatusHigh, true
	case StatusLow:
		return StatusLow, true
	case StatusUnknown:
		return StatusUnknown, true
	}
	return StatusUnknown, false
}

// classifyStatus resolves the thumbnail status: mixed units force
// unknown, a confident hint is used as-is, otherwise the latest value
// is compared against the reference bounds it carries. Values inside or
// beyond a missing bound count as normal once the present bound clears.
func classifyStatus(hint Status, mixed bool, latest *Row) Status {
	if mixed {
		return StatusUnknown
	}
	if hint != StatusUnknown {
		return hint
	}
	if latest == nil || (latest.ReferenceLower == nil && latest.ReferenceUpper == nil) {
		return StatusUnknown
	}
	if latest.ReferenceUpper != nil && latest.Value > *latest.ReferenceUpper {
		return StatusHigh
	}
	if latest.ReferenceLower != nil && latest.Value < *latest.ReferenceLower {
		return StatusLow
	}
	return StatusNormal
}
