package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconstruct(text string, chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(text[c.StartOffset:c.EndOffset])
	}
	return b.String()
}

func assertWellFormed(t *testing.T, text string, chunks []Chunk) {
	t.Helper()
	for i, c := range chunks {
		assert.LessOrEqual(t, c.StartOffset, c.EndOffset)
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, len(chunks), c.TotalChunks)
		assert.True(t, c.StartOffset >= 0 && c.EndOffset <= len(text))
	}
}

func TestFixedChunkerCoversText(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50) // 500 bytes
	f := Fixed{Opt: Options{ChunkSize: 100, ChunkOverlap: 10, MinChunkSize: 20}}
	chunks := f.Chunk(text, "file.txt")
	require.NotEmpty(t, chunks)
	assertWellFormed(t, text, chunks)
	for _, c := range chunks {
		assert.Equal(t, "file.txt", c.SourcePath)
	}
}

func TestFixedChunkerEmptyText(t *testing.T) {
	f := Fixed{Opt: Options{ChunkSize: 100}}
	assert.Empty(t, f.Chunk("", "x.txt"))
}

func TestFixedChunkerNoUTF8Split(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 30)
	f := Fixed{Opt: Options{ChunkSize: 7, ChunkOverlap: 0}}
	chunks := f.Chunk(text, "x.txt")
	for _, c := range chunks {
		assert.True(t, len(c.Content) == 0 || validUTF8Prefix(c.Content))
	}
}

func validUTF8Prefix(s string) bool {
	return strings.ToValidUTF8(s, "") == s
}

func TestRecursiveChunkerSmallWindow(t *testing.T) {
	text := "aaabbbccc"
	r := Recursive{Opt: Options{ChunkSize: 5, ChunkOverlap: 0}}
	chunks := r.Chunk(text, "f")
	require.NotEmpty(t, chunks)
	assertWellFormed(t, text, chunks)
}

func TestRecursiveChunkerRespectsParagraphs(t *testing.T) {
	text := "para one line.\n\npara two line.\n\npara three."
	r := Recursive{Opt: Options{ChunkSize: 20, ChunkOverlap: 0}}
	chunks := r.Chunk(text, "f")
	require.NotEmpty(t, chunks)
	assertWellFormed(t, text, chunks)
}

func TestSemanticChunkerSplitsOnHeaders(t *testing.T) {
	text := "# Title\n\nIntro paragraph that is reasonably long for a section boundary test.\n\n## Section Two\n\nMore content in the second section that should be its own chunk entirely.\n"
	s := Semantic{Opt: Options{ChunkSize: 40, MinChunkSize: 5}}
	chunks := s.Chunk(text, "f.md")
	require.NotEmpty(t, chunks)
	assertWellFormed(t, text, chunks)
}

func TestSemanticChunkerIgnoresFencedCode(t *testing.T) {
	text := "# Title\n\n```\n# not a header\n----\n```\n\nTrailer section long enough to count as a chunk boundary candidate here.\n"
	s := Semantic{Opt: Options{ChunkSize: 30, MinChunkSize: 5}}
	chunks := s.Chunk(text, "f.md")
	assertWellFormed(t, text, chunks)
	assert.Contains(t, reconstruct(text, chunks), "not a header")
}

func TestAllStrategiesReconstructSource(t *testing.T) {
	text := "line one\nline two\nline three\nline four\n"
	opt := Options{ChunkSize: 10, ChunkOverlap: 0, MinChunkSize: 0}
	for _, c := range []Chunker{Fixed{Opt: opt}, Recursive{Opt: opt}} {
		chunks := c.Chunk(text, "f")
		assert.Equal(t, text, reconstruct(text, chunks))
	}
}
