// Package dataset streams the tab-delimited terminology release extracts.
//
// Extracts carry a header row and no quoting: a double quote is ordinary data. Lines may be arbitrarily
// long (some descriptions are), so the reader never applies a line or field size limit.
package dataset

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Column names used by the extracts.
const (
	ColID            = "id"
	ColActive        = "active"
	ColConceptID     = "conceptId"
	ColTerm          = "term"
	ColTypeID        = "typeId"
	ColSourceID      = "sourceId"
	ColDestinationID = "destinationId"
)

type header struct {
	names []string
	index map[string]int
}

func newHeader(names []string) *header {
	h := &header{names: names, index: make(map[string]int, len(names))}
	for i, n := range names {
		if _, dup := h.index[n]; !dup {
			h.index[n] = i
		}
	}
	return h
}

// Record is one data row keyed by the header's field names, in header order.
type Record struct {
	h      *header
	values []string
}

// Get returns the value of field, or "" when the header has no such field.
func (r Record) Get(field string) string {
	if r.h == nil {
		return ""
	}
	i, ok := r.h.index[field]
	if !ok || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

func (r Record) Fields() []string {
	if r.h == nil {
		return nil
	}
	return r.h.names
}

func (r Record) Values() []string { return r.values }

// RecordSource yields records in file order and io.EOF once exhausted.
type RecordSource interface {
	Next() (Record, error)
}

// Reader is a RecordSource over one extract.
type Reader struct {
	br     *bufio.Reader
	closer io.Closer
	h      *header
	line   int64
	path   string
}

// Open opens path through opener and consumes the header row.
func Open(ctx context.Context, opener Opener, path string) (*Reader, error) {
	rc, err := opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	r, err := NewReader(rc, path)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	r.closer = rc
	return r, nil
}

// NewReader reads the header row from rd. name is only used in error messages.
func NewReader(rd io.Reader, name string) (*Reader, error) {
	r := &Reader{br: bufio.NewReaderSize(rd, 1<<20), path: name}
	line, err := r.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dataset: %s: missing header row", name)
		}
		return nil, fmt.Errorf("dataset: %s: read header: %w", name, err)
	}
	line = strings.TrimPrefix(line, "\ufeff")
	r.h = newHeader(strings.Split(line, "\t"))
	return r, nil
}

// readLine returns the next line without its terminator. Lines of any length are accepted.
func (r *Reader) readLine() (string, error) {
	line, err := r.br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		} else {
			return "", err
		}
	}
	r.line++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// Next returns the next data row. Blank lines are skipped; short rows read as empty trailing values and
// extra fields are ignored.
func (r *Reader) Next() (Record, error) {
	for {
		line, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("dataset: %s line %d: %w", r.path, r.line+1, err)
		}
		if line == "" {
			continue
		}
		values := strings.Split(line, "\t")
		if len(values) > len(r.h.names) {
			values = values[:len(r.h.names)]
		}
		return Record{h: r.h, values: values}, nil
	}
}

// Header returns the field names in file order.
func (r *Reader) Header() []string { return r.h.names }

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
