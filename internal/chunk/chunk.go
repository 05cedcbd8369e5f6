// Package chunk implements the deterministic text segmenters the indexing
// pipeline runs before embedding: fixed-window, recursive-separator, and
// boundary-aware semantic chunking.
package chunk

import (
	"strconv"
	"unicode/utf8"
)

// Chunk is one content-addressable segment of a source file.
type Chunk struct {
	SourcePath  string
	Content     string
	StartOffset int
	EndOffset   int
	StartLine   int
	EndLine     int
	ChunkIndex  int
	TotalChunks int
}

// ID is the composite key the vector store upserts chunks under.
func (c Chunk) ID() string {
	return c.SourcePath + "#chunk_" + strconv.Itoa(c.ChunkIndex)
}

// Options configures all three strategies; not every field applies to
// every strategy.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

func (o Options) normalized() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 1000
	}
	if o.ChunkOverlap < 0 {
		o.ChunkOverlap = 0
	}
	if o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = o.ChunkSize / 4
	}
	if o.MinChunkSize < 0 {
		o.MinChunkSize = 0
	}
	return o
}

// Chunker segments text from sourcePath into ordered Chunks.
type Chunker interface {
	Chunk(text, sourcePath string) []Chunk
}

// finalize stamps ChunkIndex/TotalChunks and the line numbers derived from
// each chunk's byte offsets, given the full source text.
func finalize(text string, raw []rawChunk) []Chunk {
	lineStarts := computeLineStarts(text)
	out := make([]Chunk, len(raw))
	for i, r := range raw {
		out[i] = Chunk{
			Content:     r.content,
			StartOffset: r.start,
			EndOffset:   r.end,
			StartLine:   lineForOffset(lineStarts, r.start),
			EndLine:     lineForOffset(lineStarts, max(r.start, r.end-1)),
			ChunkIndex:  i,
			TotalChunks: len(raw),
		}
	}
	return out
}

type rawChunk struct {
	content    string
	start, end int
}

func computeLineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineForOffset returns the 1-based line number containing byte offset.
func lineForOffset(lineStarts []int, offset int) int {
	lo, hi := 0, len(lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// withSourcePath stamps SourcePath on every chunk; kept separate from
// finalize so strategies can finalize before they know the path.
func withSourcePath(chunks []Chunk, sourcePath string) []Chunk {
	for i := range chunks {
		chunks[i].SourcePath = sourcePath
	}
	return chunks
}

// prevCodePointBoundary walks back from byte index i to the start of the
// UTF-8 code point it falls inside, so a split never slices through a
// multi-byte rune.
func prevCodePointBoundary(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

