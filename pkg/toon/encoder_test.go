package toon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeRecordList(t *testing.T) {
	docs := []map[string]string{
		{"source": "report.pdf", "content": "First passage"},
		{"source": "notes.txt", "content": "Second passage"},
	}

	out := Dumps(map[string]any{"documents": docs})

	lines := strings.Split(out, "\n")
	assert.Equal(t, "documents[2]{content,source}:", lines[0])
	assert.Equal(t, "  First passage,report.pdf", lines[1])
	assert.Equal(t, "  Second passage,notes.txt", lines[2])
}

func TestEncodeHoistsFieldNamesOnce(t *testing.T) {
	rows := make([]map[string]string, 10)
	for i := range rows {
		rows[i] = map[string]string{"source": "a", "content": "b"}
	}

	out := Dumps(map[string]any{"documents": rows})

	// Field names appear exactly once, in the header
	assert.Equal(t, 1, strings.Count(out, "source"))
	assert.Equal(t, 1, strings.Count(out, "content"))
}

func TestEncodeQuotesDelimiterAndNewlines(t *testing.T) {
	docs := []map[string]string{
		{"source": "a.txt", "content": "one, two\nthree"},
	}

	out := Dumps(map[string]any{"documents": docs})

	assert.Contains(t, out, `"one, two\nthree"`)
}

func TestEncodeEmptyList(t *testing.T) {
	out := Dumps(map[string]any{"documents": []map[string]string{}})
	assert.Equal(t, "documents[0]:", out)
}

func TestEncodeNestedMapAndScalars(t *testing.T) {
	out := Dumps(map[string]any{
		"meta": map[string]any{
			"count": float64(3),
			"ok":    true,
		},
		"title": "hello",
	})

	assert.Contains(t, out, "meta:\n  count: 3\n  ok: true")
	assert.Contains(t, out, "title: hello")
}

func TestEncodePrimitiveList(t *testing.T) {
	out := Dumps(map[string]any{"tags": []string{"go", "rag"}})
	assert.Equal(t, "tags[2]: go,rag", out)
}

func TestEncodeMixedListFallsBackToScalarRows(t *testing.T) {
	// A list mixing maps and scalars cannot be tabular
	out := Dumps(map[string]any{"items": []any{"plain", 7}})
	assert.Equal(t, "items[2]: plain,7", out)
}

func TestEncodeRaggedRecordsEmitEmptyCells(t *testing.T) {
	rows := []map[string]any{
		{"source": "a", "content": "x"},
		{"source": "b"}, // missing content
	}

	out := Dumps(map[string]any{"documents": rows})

	lines := strings.Split(out, "\n")
	assert.Equal(t, "documents[2]{content,source}:", lines[0])
	// missing cell renders as null
	assert.Equal(t, "  null,b", lines[2])
}
