package batch

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/ankiform/internal/testutil"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Entry
		wantErr string
	}{
		{
			name:    "empty file",
			content: "",
			want:    nil,
		},
		{
			name:    "only whitespace and comments",
			content: "   \n\t\r\n # words\n",
			want:    nil,
		},
		{
			name:    "mixed format",
			content: "ябълка\nкотка = cat\n\n  куче  \n",
			want: []Entry{
				{Line: 1, Word: "ябълка"},
				{Line: 2, Word: "котка", Definition: "cat"},
				{Line: 4, Word: "куче"},
			},
		},
		{
			name:    "windows line endings",
			content: "ябълка\r\nкотка = cat\r\n",
			want: []Entry{
				{Line: 1, Word: "ябълка"},
				{Line: 2, Word: "котка", Definition: "cat"},
			},
		},
		{
			name:    "multiple equals signs",
			content: "test = word = with = equals",
			want:    []Entry{{Line: 1, Word: "test", Definition: "word = with = equals"}},
		},
		{
			name:    "definition without word",
			content: "котка\n= apple\n",
			wantErr: "batch line 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.content))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	path := testutil.CreateTestFile(t, filepath.Join(t.TempDir(), "words.txt"), []byte("хляб = bread\n"))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []Entry{{Line: 1, Word: "хляб", Definition: "bread"}}, got)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorContains(t, err, "failed to read batch file")
}
