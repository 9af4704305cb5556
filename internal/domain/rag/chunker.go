package rag

import "strings"

// Chunking defaults.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
)

// Chunk splits text into windows of size characters (Unicode code points),
// advancing by size-overlap so consecutive windows share overlap characters.
//
// Rules:
//   - Whitespace runs collapse to one space and the ends are trimmed first.
//   - Empty or whitespace-only input returns nil.
//   - size is clamped to >= 1; overlap to [0, size-1].
//   - Windows start at 0, step, 2*step, ... while start < length, so the last
//     windows may be shorter than size.
//   - Each window is trimmed; empty windows are dropped.
func Chunk(text string, size, overlap int) []string {
	normalized := []rune(strings.Join(strings.Fields(text), " "))
	if len(normalized) == 0 {
		return nil
	}

	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	step := size - overlap

	var chunks []string
	for start := 0; start < len(normalized); start += step {
		end := min(start+size, len(normalized))
		if c := strings.TrimSpace(string(normalized[start:end])); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}
