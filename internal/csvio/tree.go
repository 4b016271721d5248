// Package csvio writes and reads UDM CSV files in the resource directory
// layout shared by the extractors and the loader:
//
//	<base>/users/<timestamp>.csv
//	<base>/sections/<timestamp>.csv
//	<base>/section=<id>/section-associations/<timestamp>.csv
//	<base>/section=<id>/assignments/<timestamp>.csv
//	<base>/section=<id>/grades/<timestamp>.csv
//	<base>/section=<id>/attendance-events/<timestamp>.csv
//	<base>/section=<id>/assignment=<id>/submissions/<timestamp>.csv
//
// File names carry the write time so a directory holds the full pull
// history; readers always take the newest file.
package csvio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/roach88/slate/internal/udm"
)

// FileTimeLayout names CSV files so lexical order equals chronological order.
const FileTimeLayout = "2006-01-02-15-04-05"

// Tree locates resource directories under one output root.
type Tree struct {
	Base string
}

// Users returns the users resource directory.
func (t Tree) Users() string {
	return filepath.Join(t.Base, string(udm.ResourceUsers))
}

// Sections returns the sections resource directory.
func (t Tree) Sections() string {
	return filepath.Join(t.Base, string(udm.ResourceSections))
}

// SectionResource returns a section-scoped resource directory.
func (t Tree) SectionResource(sectionID string, r udm.Resource) string {
	return filepath.Join(t.Base, "section="+sectionID, string(r))
}

// Submissions returns the submissions directory for one assignment.
func (t Tree) Submissions(sectionID, assignmentID string) string {
	return filepath.Join(t.Base, "section="+sectionID, "assignment="+assignmentID, string(udm.ResourceSubmissions))
}

// NewestFile returns the lexically greatest .csv file in dir, or "" when the
// directory does not exist or holds no CSV files.
func NewestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}

	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// SectionDirs lists every section=<id> directory under the base.
func (t Tree) SectionDirs() ([]string, error) {
	entries, err := os.ReadDir(t.Base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", t.Base, err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "section=") {
			dirs = append(dirs, filepath.Join(t.Base, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// AssignmentDirs lists every assignment=<id> directory under one section dir.
func AssignmentDirs(sectionDir string) ([]string, error) {
	entries, err := os.ReadDir(sectionDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", sectionDir, err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "assignment=") {
			dirs = append(dirs, filepath.Join(sectionDir, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// fileName builds the dated file name for a write at ts.
func fileName(ts time.Time) string {
	return ts.Format(FileTimeLayout) + ".csv"
}
