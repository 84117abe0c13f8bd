package planning

import (
	"testing"

	"github.com/stretchr/testify/require"

	"planwise/internal/domain/models/planning"
)

func TestDiffLines(t *testing.T) {
	tests := []struct {
		name     string
		before   string
		after    string
		added    []planning.LineChange
		removed  []planning.LineChange
		modified []planning.LineChange
	}{
		{
			name:   "identical",
			before: "a\nb",
			after:  "a\nb\n",
		},
		{
			name:     "modified and appended",
			before:   "a\nb\nc",
			after:    "a\nB\nc\nd",
			added:    []planning.LineChange{{NewLine: 4, New: "d"}},
			modified: []planning.LineChange{{OldLine: 2, NewLine: 2, Old: "b", New: "B"}},
		},
		{
			name:    "removed",
			before:  "a\nb\nc",
			after:   "a\nc",
			removed: []planning.LineChange{{OldLine: 2, Old: "b"}},
		},
		{
			name:   "from empty",
			before: "",
			after:  "x\ny",
			added:  []planning.LineChange{{NewLine: 1, New: "x"}, {NewLine: 2, New: "y"}},
		},
		{
			name:     "replacement shrinks",
			before:   "head\none\ntwo\ntail",
			after:    "head\nuno\ntail",
			modified: []planning.LineChange{{OldLine: 2, NewLine: 2, Old: "one", New: "uno"}},
			removed:  []planning.LineChange{{OldLine: 3, Old: "two"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := DiffLines(tt.before, tt.after)
			require.ElementsMatch(t, tt.added, diff.Added)
			require.ElementsMatch(t, tt.removed, diff.Removed)
			require.ElementsMatch(t, tt.modified, diff.Modified)
			require.Equal(t, len(tt.added)+len(tt.removed)+len(tt.modified) == 0, diff.Empty())
		})
	}
}
