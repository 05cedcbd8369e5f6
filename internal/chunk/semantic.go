package chunk

import "strings"

// Semantic walks text line by line, splitting at structural boundaries
// (blank lines, Markdown headers, underline-style headers, horizontal
// rules, shouty lines) while never splitting inside a fenced code block.
// Sections are force-split past 2×ChunkSize and a post-pass merges
// adjacent sections below MinChunkSize.
type Semantic struct {
	Opt Options
}

func (s Semantic) Chunk(text, sourcePath string) []Chunk {
	opt := s.Opt.normalized()
	if text == "" {
		return nil
	}

	lines := splitLinesKeepOffsets(text)
	var sections []rawChunk
	secStart := 0
	inFence := false
	prevBlank := false

	flush := func(end int) {
		if end > secStart {
			sections = append(sections, rawChunk{content: text[secStart:end], start: secStart, end: end})
		}
		secStart = end
	}

	for i, ln := range lines {
		trimmed := strings.TrimSpace(ln.text)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
		boundary := !inFence && isBoundaryLine(trimmed, prevBlank)
		prevBlank = trimmed == ""

		sectionLen := ln.start - secStart
		if boundary && sectionLen >= opt.ChunkSize {
			flush(ln.start)
		} else if ln.start-secStart > 2*opt.ChunkSize {
			flush(ln.start)
		}
		if i == len(lines)-1 {
			flush(ln.end)
		}
	}
	flush(len(text))

	sections = mergeSmallSections(sections, opt.MinChunkSize)
	return withSourcePath(finalize(text, sections), sourcePath)
}

type lineSpan struct {
	text       string
	start, end int
}

func splitLinesKeepOffsets(text string) []lineSpan {
	var out []lineSpan
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			out = append(out, lineSpan{text: text[start : i+1], start: start, end: i + 1})
			start = i + 1
		}
	}
	if start < len(text) {
		out = append(out, lineSpan{text: text[start:], start: start, end: len(text)})
	}
	return out
}

func isBoundaryLine(trimmed string, prevBlank bool) bool {
	if trimmed == "" {
		return !prevBlank // a run of blank lines is one boundary, not many
	}
	if strings.HasPrefix(trimmed, "#") {
		return true
	}
	if isRepeatedRune(trimmed, '=') || isRepeatedRune(trimmed, '-') {
		return true
	}
	if trimmed == "---" || trimmed == "***" {
		return true
	}
	if isShoutyLine(trimmed) {
		return true
	}
	return false
}

func isRepeatedRune(s string, r rune) bool {
	if len(s) < 3 {
		return false
	}
	for _, c := range s {
		if c != r {
			return false
		}
	}
	return true
}

func isShoutyLine(s string) bool {
	alpha := 0
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
			return false
		case c >= 'A' && c <= 'Z':
			alpha++
		}
	}
	return alpha > 3
}

func mergeSmallSections(sections []rawChunk, minSize int) []rawChunk {
	if minSize <= 0 || len(sections) < 2 {
		return sections
	}
	out := make([]rawChunk, 0, len(sections))
	for _, sec := range sections {
		if len(out) > 0 && len(sec.content) < minSize {
			last := out[len(out)-1]
			out[len(out)-1] = rawChunk{start: last.start, end: sec.end, content: last.content + sec.content}
			continue
		}
		out = append(out, sec)
	}
	return out
}
