package markdown

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown_Build(t *testing.T) {
	md := New().
		AddHeading("Status Summary", 2).
		AddParagraph("Command cmd-1").
		AddTable(
			[]string{"Status", "Count"},
			[][]string{
				{"Success", "2"},
				{"Failed", "1"},
			},
		).
		AddList([]string{"first", "second"})

	content := md.String()

	assert.Contains(t, content, "## Status Summary\n\n")
	assert.Contains(t, content, "Command cmd-1\n\n")
	assert.Contains(t, content, "| Status | Count |\n| --- | --- |\n")
	assert.Contains(t, content, "| Success | 2 |\n")
	assert.Contains(t, content, "- first\n- second\n")
}

func TestMarkdown_AddTable_PadsShortRows(t *testing.T) {
	md := New().AddTable([]string{"A", "B", "C"}, [][]string{{"only"}})

	assert.Contains(t, md.String(), "| only |  |  |\n")
}

func TestMarkdown_AddTable_NoHeadersIsNoop(t *testing.T) {
	md := New().AddTable(nil, [][]string{{"x"}})

	assert.Equal(t, "", md.String())
}

func TestMarkdown_WriteTo(t *testing.T) {
	md := New().AddHeading("Title", 1)

	var buf bytes.Buffer
	n, err := md.WriteTo(&buf)

	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, "# Title\n\n", buf.String())
}

func TestMarkdown_PrintToFile(t *testing.T) {
	md := New().AddHeading("Title", 1)

	file := t.TempDir() + "/out.md"
	err := md.Print(PrintOptions{ToTerminal: false, ToFile: file})

	require.NoError(t, err)
	assert.FileExists(t, file)
}
