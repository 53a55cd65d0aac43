package dataset

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readAll(t *testing.T, src RecordSource) []Record {
	t.Helper()
	var out []Record
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, rec)
	}
}

func TestReaderQuotesAreData(t *testing.T) {
	in := "id\tactive\tterm\r\n" +
		"1\t1\t\"Quoted\" term\r\n" +
		"2\t1\tsay \"hi\r\n"
	r, err := NewReader(strings.NewReader(in), "desc")
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	recs := readAll(t, r)
	if len(recs) != 2 {
		t.Fatalf("records=%d", len(recs))
	}
	if got := recs[0].Get(ColTerm); got != `"Quoted" term` {
		t.Fatalf("term=%q", got)
	}
	if got := recs[1].Get(ColTerm); got != `say "hi` {
		t.Fatalf("unbalanced quote changed: %q", got)
	}
}

func TestReaderUnboundedLine(t *testing.T) {
	long := strings.Repeat("x", 3<<20)
	in := "id\tterm\n7\t" + long + "\n"
	r, err := NewReader(strings.NewReader(in), "long")
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	recs := readAll(t, r)
	if len(recs) != 1 || len(recs[0].Get(ColTerm)) != len(long) {
		t.Fatalf("long line truncated")
	}
}

func TestReaderShortAndLongRows(t *testing.T) {
	in := "id\tactive\tconceptId\n1\t1\n2\t1\t9\textra\n\n3\t0\t4"
	r, _ := NewReader(strings.NewReader(in), "rows")
	recs := readAll(t, r)
	if len(recs) != 3 {
		t.Fatalf("records=%d", len(recs))
	}
	if recs[0].Get(ColConceptID) != "" {
		t.Fatalf("short row should read empty")
	}
	if len(recs[1].Values()) != 3 {
		t.Fatalf("extra field kept: %v", recs[1].Values())
	}
	if recs[2].Get(ColConceptID) != "4" {
		t.Fatalf("last line without newline lost")
	}
	if recs[0].Get("missing") != "" {
		t.Fatalf("unknown field should read empty")
	}
	if got := strings.Join(recs[0].Fields(), ","); got != "id,active,conceptId" {
		t.Fatalf("fields=%s", got)
	}
}

func TestReaderEmptyInput(t *testing.T) {
	if _, err := NewReader(strings.NewReader(""), "empty"); err == nil {
		t.Fatalf("expected missing header error")
	}
}

func TestActiveFilter(t *testing.T) {
	src := NewSliceSource([]string{ColID, ColActive}, [][]string{
		{"1", "1"}, {"2", "0"}, {"3", "1"}, {"4", ""},
	})
	f := Active(src, "")
	recs := readAll(t, f)
	if len(recs) != 2 || recs[0].Get(ColID) != "1" || recs[1].Get(ColID) != "3" {
		t.Fatalf("active rows=%v", recs)
	}
	if f.Skipped() != 2 {
		t.Fatalf("skipped=%d", f.Skipped())
	}
}

func TestOpenLocalFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "c.txt")
	if err := os.WriteFile(p, []byte("id\tactive\n10\t1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Open(context.Background(), NewStorageOpener(), p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	recs := readAll(t, r)
	if len(recs) != 1 || recs[0].Get(ColID) != "10" {
		t.Fatalf("records=%v", recs)
	}

	if _, err := Open(context.Background(), NewStorageOpener(), filepath.Join(dir, "nope.txt")); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
