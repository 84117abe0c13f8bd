package planning

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"planwise/internal/domain/models/planning"
)

// DiffLines compares two texts line by line. A removed run directly followed
// by an added run is reported as modified lines, paired in order; leftovers
// stay removed or added. Line numbers are 1-based.
func DiffLines(before, after string) *planning.VersionDiff {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(normalizeEOL(before), normalizeEOL(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	result := &planning.VersionDiff{
		Added:    []planning.LineChange{},
		Removed:  []planning.LineChange{},
		Modified: []planning.LineChange{},
	}

	oldLine, newLine := 1, 1
	var removed []planning.LineChange
	flush := func() {
		result.Removed = append(result.Removed, removed...)
		removed = nil
	}

	for _, d := range diffs {
		chunk := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			oldLine += len(chunk)
			newLine += len(chunk)
		case diffmatchpatch.DiffDelete:
			for _, line := range chunk {
				removed = append(removed, planning.LineChange{OldLine: oldLine, Old: line})
				oldLine++
			}
		case diffmatchpatch.DiffInsert:
			for _, line := range chunk {
				if len(removed) > 0 {
					r := removed[0]
					removed = removed[1:]
					result.Modified = append(result.Modified, planning.LineChange{
						OldLine: r.OldLine,
						NewLine: newLine,
						Old:     r.Old,
						New:     line,
					})
				} else {
					result.Added = append(result.Added, planning.LineChange{NewLine: newLine, New: line})
				}
				newLine++
			}
			flush()
		}
	}
	flush()

	return result
}

// normalizeEOL terminates the last line so "a\nb" and "a\nb\n" diff equal
func normalizeEOL(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
