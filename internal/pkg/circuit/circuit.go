// Package circuit reads the external inputs of the zone pipeline: the line list
// of a feeder model and the bus coordinate table.
package circuit

import (
	"errors"
	"fmt"
)

// ErrConfig marks input that cannot be used to build a feeder graph. It is
// always fatal for the run.
var ErrConfig = errors.New("configuration error")

// LineRecord is a single line of the feeder model.
type LineRecord struct {
	Name string
	From string
	To   string
	R1   float64 // positive sequence resistance
}

// LineSource enumerates line records in model order.
type LineSource interface {
	Next() bool
	Line() LineRecord
	Err() error
}

// SliceSource is a LineSource over an in-memory list.
type SliceSource struct {
	lines []LineRecord
	pos   int
}

// NewSliceSource returns a source positioned before the first record.
func NewSliceSource(lines []LineRecord) *SliceSource {
	return &SliceSource{lines: lines, pos: -1}
}

// Next advances to the next record.
func (s *SliceSource) Next() bool {
	if s.pos+1 >= len(s.lines) {
		s.pos = len(s.lines)
		return false
	}
	s.pos++
	return true
}

// Line returns the current record.
func (s *SliceSource) Line() LineRecord {
	if s.pos < 0 || s.pos >= len(s.lines) {
		return LineRecord{}
	}
	return s.lines[s.pos]
}

// Err is always nil for an in-memory source.
func (s *SliceSource) Err() error {
	return nil
}

func configErr(path string, line int, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s:%d: %s", ErrConfig, path, line, fmt.Sprintf(format, args...))
}
