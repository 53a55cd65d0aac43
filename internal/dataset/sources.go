package dataset

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Sources names the three extracts of a release.
type Sources struct {
	Concepts      string
	Descriptions  string
	Relationships string
}

// MissingSourceError lists every extract that could not be found.
type MissingSourceError struct {
	Missing []string
}

func (e *MissingSourceError) Error() string {
	return "dataset: missing source files: " + strings.Join(e.Missing, ", ")
}

func (s Sources) roles() []struct{ role, path string } {
	return []struct{ role, path string }{
		{"concepts", s.Concepts},
		{"descriptions", s.Descriptions},
		{"relationships", s.Relationships},
	}
}

// Check verifies all three extracts exist and reports every absent one at once.
func (s Sources) Check(ctx context.Context, opener Opener) error {
	var missing []string
	for _, r := range s.roles() {
		err := opener.Stat(ctx, r.path)
		switch {
		case err == nil:
		case errors.Is(err, ErrNotExist):
			if r.path == "" {
				missing = append(missing, r.role+" (no path)")
			} else {
				missing = append(missing, r.role+" ("+r.path+")")
			}
		default:
			return fmt.Errorf("dataset: check %s: %w", r.role, err)
		}
	}
	if len(missing) > 0 {
		return &MissingSourceError{Missing: missing}
	}
	return nil
}

// Discover finds the snapshot extracts inside a release directory (local or gs://).
// Stated relationships are ignored; when several files match, the lexically last wins.
func Discover(ctx context.Context, opener Opener, dir string) (Sources, error) {
	files, err := opener.List(ctx, dir)
	if err != nil {
		return Sources{}, err
	}
	sort.Strings(files)

	var s Sources
	for _, f := range files {
		base := path.Base(f)
		if !strings.HasPrefix(base, "sct2_") || !strings.Contains(base, "Snapshot") || !strings.HasSuffix(base, ".txt") {
			continue
		}
		switch {
		case strings.HasPrefix(base, "sct2_Concept_"):
			s.Concepts = f
		case strings.HasPrefix(base, "sct2_Description_"):
			s.Descriptions = f
		case strings.HasPrefix(base, "sct2_Relationship_"):
			s.Relationships = f
		}
	}
	return s, nil
}
