package dataset

import (
	"io"
	"sync/atomic"
)

// DefaultActiveMarker is the value of the active column for rows that are in use.
const DefaultActiveMarker = "1"

// ActiveFilter passes through rows whose active column equals the marker and counts the rest.
type ActiveFilter struct {
	src     RecordSource
	marker  string
	skipped atomic.Int64
}

func Active(src RecordSource, marker string) *ActiveFilter {
	if marker == "" {
		marker = DefaultActiveMarker
	}
	return &ActiveFilter{src: src, marker: marker}
}

func (f *ActiveFilter) Next() (Record, error) {
	for {
		rec, err := f.src.Next()
		if err != nil {
			return Record{}, err
		}
		if rec.Get(ColActive) == f.marker {
			return rec, nil
		}
		f.skipped.Add(1)
	}
}

// Skipped reports how many inactive rows have been filtered out so far.
func (f *ActiveFilter) Skipped() int64 { return f.skipped.Load() }

// SliceSource serves rows held in memory.
type SliceSource struct {
	h    *header
	rows [][]string
	pos  int
}

func NewSliceSource(fields []string, rows [][]string) *SliceSource {
	return &SliceSource{h: newHeader(fields), rows: rows}
}

func (s *SliceSource) Next() (Record, error) {
	if s.pos >= len(s.rows) {
		return Record{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	if len(row) > len(s.h.names) {
		row = row[:len(s.h.names)]
	}
	return Record{h: s.h, values: row}, nil
}

// Reset rewinds the source to its first row.
func (s *SliceSource) Reset() { s.pos = 0 }
