// Package chunker splits raw document text into bounded, overlapping,
// section-aware chunks. Chunking is pure and deterministic: the same text and
// options always produce byte-identical output, and every chunk's content is
// the literal substring text[StartChar:EndChar] of the cleaned input.
package chunker

import (
	"strings"

	"github.com/atrium-law/lexrag/internal/domain"
)

// Defaults applied by Options.normalize.
const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
	DefaultMinChunkSize = 100
)

// DefaultSeparators is the split priority order: paragraph breaks, line
// breaks, sentence boundaries, clause boundaries, then word boundaries.
// Fixed-width slicing is the implicit final tier.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " "}

// Options controls chunking behavior.
type Options struct {
	// ChunkSize is the target maximum chunk length in bytes, before the
	// overlap prefix. A chunk never exceeds ChunkSize+ChunkOverlap.
	ChunkSize int
	// ChunkOverlap is the number of trailing bytes of each chunk duplicated
	// as leading context on the next chunk.
	ChunkOverlap int
	// MinChunkSize is the smallest chunk emitted standalone; a shorter
	// trailing fragment is merged into its preceding neighbor. The hard cap
	// takes precedence: a merge that would exceed it is skipped.
	MinChunkSize int
	// Separators overrides the split priority order.
	Separators []string
	// RespectSections pre-splits on legal section markers (ARTICLE, SECTION,
	// numbered headings, ALL-CAPS headings, markdown headings) and tags each
	// chunk with its nearest preceding header.
	RespectSections bool
}

func (o Options) normalize() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap < 0 {
		o.ChunkOverlap = DefaultChunkOverlap
	}
	if o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = o.ChunkSize / 4
	}
	if o.MinChunkSize <= 0 {
		o.MinChunkSize = DefaultMinChunkSize
	}
	if o.MinChunkSize > o.ChunkSize {
		o.MinChunkSize = o.ChunkSize
	}
	if len(o.Separators) == 0 {
		o.Separators = DefaultSeparators
	}
	return o
}

// Clean normalizes line endings and trims surrounding whitespace. Chunk
// offsets refer to the cleaned text.
func Clean(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
}

// Chunk splits text into ordered, overlapping chunks. Empty or
// whitespace-only input yields nil; input no longer than ChunkSize yields a
// single chunk spanning the whole cleaned text.
func Chunk(text string, opts Options) []domain.Chunk {
	opts = opts.normalize()

	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}

	if opts.RespectSections {
		return chunkSections(cleaned, opts)
	}

	chunks := chunkRange(cleaned, 0, len(cleaned), "", opts)
	return finalize(cleaned, chunks, opts)
}

// chunkSections pre-splits on detected section headers and chunks each
// section independently, carrying the header as chunk metadata.
func chunkSections(text string, opts Options) []domain.Chunk {
	sections := splitSections(text)

	var chunks []domain.Chunk
	for _, sec := range sections {
		chunks = append(chunks, chunkRange(text, sec.start, sec.end, sec.header, opts)...)
	}
	return finalize(text, chunks, opts)
}

/// chunkRange chunks text[lo:hi): recursive separator splitting into
// fragments no longer than ChunkSize, greedy re-merge, then a trailing-runt
// merge. Offsets are absolute into text. Overlap is applied by finalize.
func chunkRange(text string, lo, hi int, header string, opts Options) []domain.Chunk {
	if lo >= hi {
		return nil
	}

	cuts := splitRecursive(text[lo:hi], opts.Separators, opts.ChunkSize)

	// Greedy re-merge of contiguous fragments up to ChunkSize.
	var ranges [][2]int
	start := lo
	pos := lo
	for _, n := range cuts {
		if pos+n-start > opts.ChunkSize && pos > start {
			ranges = append(ranges, [2]int{start, pos})
			start = pos
		}
		pos += n
	}
	ranges = append(ranges, [2]int{start, hi})

	// A trailing fragment below MinChunkSize joins its neighbor instead of
	// standing alone, unless the merged range would break the hard cap.
	if n := len(ranges); n > 1 && ranges[n-1][1]-ranges[n-1][0] < opts.MinChunkSize &&
		ranges[n-1][1]-ranges[n-2][0] <= opts.ChunkSize+opts.ChunkOverlap {
		ranges[n-2][1] = ranges[n-1][1]
		ranges = ranges[:n-1]
	}

	chunks := make([]domain.Chunk, 0, len(ranges))
	for _, r := range ranges {
		chunks = append(chunks, domain.Chunk{
			StartChar:     r[0],
			EndChar:       r[1],
			SectionHeader: header,
		})
	}
	return chunks
}

// splitRecursive returns fragment lengths that partition text into pieces no
// longer than size, splitting on the highest-priority separator that
// produces more than one piece and recursing into the next tier for
// oversized pieces. The final tier is fixed-width slicing, which guarantees
// termination.
func splitRecursive(text string, seps []string, size int) []int {
	if len(text) <= size {
		return []int{len(text)}
	}
	if len(seps) == 0 {
		return sliceFixed(len(text), size)
	}

	parts := splitKeep(text, seps[0])
	if len(parts) == 1 {
		return splitRecursive(text, seps[1:], size)
	}

	var out []int
	for _, p := range parts {
		if len(p) <= size {
			out = append(out, len(p))
		} else {
			out = append(out, splitRecursive(p, seps[1:], size)...)
		}
	}
	return out
}

// splitKeep splits on sep, keeping the separator attached to the preceding
// piece so the pieces concatenate back to the input exactly.
func splitKeep(text, sep string) []string {
	var parts []string
	for {
		i := strings.Index(text, sep)
		if i < 0 {
			parts = append(parts, text)
			return parts
		}
		parts = append(parts, text[:i+len(sep)])
		text = text[i+len(sep):]
		if text == "" {
			return parts
		}
	}
}

// sliceFixed partitions a length into size-wide pieces.
func sliceFixed(length, size int) []int {
	var out []int
	for length > size {
		out = append(out, size)
		length -= size
	}
	out = append(out, length)
	return out
}

// finalize numbers the chunks, applies the overlap prefix, fills content
// from the source text, and sets the first/last markers. Overlap is only
// applied between chunks of the same section.
func finalize(text string, chunks []domain.Chunk, opts Options) []domain.Chunk {
	hardCap := opts.ChunkSize + opts.ChunkOverlap
	for i := range chunks {
		c := &chunks[i]
		// The prefix shrinks when the chunk already sits near the hard cap,
		// so a chunk never exceeds ChunkSize+ChunkOverlap.
		overlap := opts.ChunkOverlap
		if avail := hardCap - (c.EndChar - c.StartChar); overlap > avail {
			overlap = avail
		}
		if i > 0 && overlap > 0 && chunks[i-1].SectionHeader == c.SectionHeader {
			// Duplicate up to overlap bytes of the previous chunk as leading
			// context, trimmed forward to a word boundary.
			from := c.StartChar - overlap
			if from < chunks[i-1].StartChar {
				from = chunks[i-1].StartChar
			}
			if ws := strings.IndexAny(text[from:c.StartChar], " \n\t"); ws >= 0 {
				from += ws + 1
			}
			c.StartChar = from
		}
		c.Index = i
		c.Content = text[c.StartChar:c.EndChar]
		c.IsFirst = i == 0
		c.IsLast = i == len(chunks)-1
	}
	return chunks
}
