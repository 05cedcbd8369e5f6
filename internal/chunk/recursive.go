package chunk

import "strings"

var recursiveSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Recursive splits on the first separator in recursiveSeparators,
// accumulating pieces greedily up to ChunkSize; a piece that still
// exceeds ChunkSize is recursively split with the remaining separators.
// Overlap is synthesized by prepending the previous chunk's trailing
// ChunkOverlap bytes to the next chunk's content (offsets still reflect
// the non-overlapping source region).
type Recursive struct {
	Opt Options
}

func (r Recursive) Chunk(text, sourcePath string) []Chunk {
	opt := r.Opt.normalized()
	if text == "" {
		return nil
	}
	raw := splitRecursive(text, 0, opt.ChunkSize, recursiveSeparators)
	raw = synthesizeOverlap(text, raw, opt.ChunkOverlap)
	return withSourcePath(finalize(text, raw), sourcePath)
}

// splitRecursive partitions text[offset:offset+len(text)] into pieces no
// longer than chunkSize bytes, using seps in order; offset is the byte
// position of text within the original source, so returned rawChunk
// offsets are absolute.
func splitRecursive(text string, offset int, chunkSize int, seps []string) []rawChunk {
	if len(text) <= chunkSize {
		return []rawChunk{{content: text, start: offset, end: offset + len(text)}}
	}
	if len(seps) == 0 {
		return splitByCodePoints(text, offset, chunkSize)
	}

	sep := seps[0]
	var pieces []string
	var pieceOffsets []int
	if sep == "" {
		pieces, pieceOffsets = splitCodePointsAsPieces(text, offset)
	} else {
		pieces, pieceOffsets = splitKeepOffsets(text, offset, sep)
	}

	var out []rawChunk
	var curStart, curEnd int
	haveCur := false

	flush := func() {
		if haveCur {
			out = append(out, rawChunk{content: text[curStart-offset : curEnd-offset], start: curStart, end: curEnd})
			haveCur = false
		}
	}

	for i, piece := range pieces {
		pStart := pieceOffsets[i]
		pEnd := pStart + len(piece)
		if len(piece) > chunkSize {
			flush()
			out = append(out, splitRecursive(piece, pStart, chunkSize, seps[1:])...)
			continue
		}
		if !haveCur {
			curStart, curEnd, haveCur = pStart, pEnd, true
			continue
		}
		if (curEnd-curStart)+len(piece) <= chunkSize {
			curEnd = pEnd
			continue
		}
		flush()
		curStart, curEnd, haveCur = pStart, pEnd, true
	}
	flush()
	return out
}

// splitKeepOffsets splits text on sep, returning the pieces (with sep
// reattached to keep byte-accounting simple, except for the final piece)
// and each piece's absolute start offset.
func splitKeepOffsets(text string, offset int, sep string) ([]string, []int) {
	var pieces []string
	var offsets []int
	start := 0
	for {
		idx := strings.Index(text[start:], sep)
		if idx < 0 {
			pieces = append(pieces, text[start:])
			offsets = append(offsets, offset+start)
			break
		}
		end := start + idx + len(sep)
		pieces = append(pieces, text[start:end])
		offsets = append(offsets, offset+start)
		start = end
	}
	return pieces, offsets
}

// splitCodePointsAsPieces treats every rune as its own piece, for the
// degenerate empty-separator case.
func splitCodePointsAsPieces(text string, offset int) ([]string, []int) {
	var pieces []string
	var offsets []int
	i := 0
	for i < len(text) {
		j := nextCodePointBoundary(text, i+1)
		if j <= i {
			j = len(text)
		}
		pieces = append(pieces, text[i:j])
		offsets = append(offsets, offset+i)
		i = j
	}
	return pieces, offsets
}

// splitByCodePoints is the base case when every separator has been
// exhausted and a single piece is still over chunkSize: slice at
// code-point boundaries without overlap.
func splitByCodePoints(text string, offset int, chunkSize int) []rawChunk {
	var out []rawChunk
	start := 0
	for start < len(text) {
		end := start + chunkSize
		end = nextCodePointBoundary(text, end)
		if end <= start {
			end = len(text)
		}
		out = append(out, rawChunk{content: text[start:end], start: offset + start, end: offset + end})
		start = end
	}
	return out
}

// synthesizeOverlap prepends the previous chunk's trailing overlap bytes
// (snapped to a code-point boundary) to each chunk after the first.
func synthesizeOverlap(text string, raw []rawChunk, overlap int) []rawChunk {
	if overlap <= 0 || len(raw) < 2 {
		return raw
	}
	out := make([]rawChunk, len(raw))
	out[0] = raw[0]
	for i := 1; i < len(raw); i++ {
		prev := raw[i-1]
		tailStart := prev.end - overlap
		if tailStart < prev.start {
			tailStart = prev.start
		}
		tailStart = nextCodePointBoundary(text, tailStart)
		tail := text[tailStart:prev.end]
		cur := raw[i]
		out[i] = rawChunk{
			content: tail + cur.content,
			start:   cur.start,
			end:     cur.end,
		}
	}
	return out
}
