package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("short", 1000, 200)
	assert.Equal(t, []string{"short"}, chunks)
}

func TestSplitTextChunksWithOverlap(t *testing.T) {
	text := strings.Repeat("a", 250)
	chunks := SplitText(text, 100, 20)

	require.True(t, len(chunks) > 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 100)
	}

	// Consecutive chunks share the overlap region
	assert.Equal(t, chunks[0][80:], chunks[1][:20])
}

func TestSplitTextPreservesAllContent(t *testing.T) {
	text := strings.Repeat("0123456789", 30)
	chunks := SplitText(text, 100, 0)

	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitTextOverlapLargerThanChunk(t *testing.T) {
	text := strings.Repeat("x", 300)
	chunks := SplitText(text, 100, 150)

	// Falls back to non-overlapping steps instead of looping forever
	require.Len(t, chunks, 3)
}

func TestSplitTextHandlesMultibyte(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 50)
	chunks := SplitText(text, 100, 10)

	for _, c := range chunks {
		assert.True(t, len([]rune(c)) <= 100)
	}
}
