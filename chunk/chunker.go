package chunk

import (
	"strings"
	"unicode"
)

// Segment is a chunk of source text together with its character offset in
// the original document. Text is always non-empty after trimming.
type Segment struct {
	Text   string
	Offset int
}

// Config holds chunking parameters.
type Config struct {
	// TargetSize is the sliding window length in characters.
	TargetSize int

	// OverlapSize is the number of characters shared between consecutive
	// windows. Must be smaller than TargetSize to guarantee progress.
	OverlapSize int

	// MaxSegmentLength bounds the coarse segments produced by pre-splitting
	// large documents along paragraph breaks.
	MaxSegmentLength int

	// PreserveSentences extends window edges to sentence boundaries so that
	// no sentence is split mid-way, at the cost of slightly uneven sizes.
	PreserveSentences bool

	// Multilingual enables wide (CJK) sentence-ending punctuation.
	Multilingual bool
}

// sentenceSlack bounds how far past TargetSize a window may be extended to
// reach the next sentence end.
const sentenceSlack = 100

// DefaultConfig returns the chunking parameters used when no options are given.
func DefaultConfig() Config {
	return Config{
		TargetSize:        1000,
		OverlapSize:       200,
		MaxSegmentLength:  5000,
		PreserveSentences: true,
	}
}

// Option configures a Chunker.
type Option func(*Config)

// WithTargetSize sets the sliding window length in characters.
func WithTargetSize(n int) Option {
	return func(c *Config) { c.TargetSize = n }
}

// WithOverlapSize sets the overlap between consecutive windows in characters.
func WithOverlapSize(n int) Option {
	return func(c *Config) { c.OverlapSize = n }
}

// WithMaxSegmentLength sets the coarse segment bound for large documents.
func WithMaxSegmentLength(n int) Option {
	return func(c *Config) { c.MaxSegmentLength = n }
}

// WithPreserveSentences toggles sentence boundary preservation.
func WithPreserveSentences(enabled bool) Option {
	return func(c *Config) { c.PreserveSentences = enabled }
}

// WithMultilingual toggles wide-character sentence punctuation support.
func WithMultilingual(enabled bool) Option {
	return func(c *Config) { c.Multilingual = enabled }
}

// Chunker splits document text into overlapping, boundary-aware segments.
// Output is deterministic for identical input and configuration.
type Chunker struct {
	cfg Config
}

// New creates a Chunker with the default configuration and applies options.
func New(opts ...Option) *Chunker {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.TargetSize < 1 {
		cfg.TargetSize = 1
	}
	if cfg.OverlapSize < 0 {
		cfg.OverlapSize = 0
	}
	if cfg.MaxSegmentLength < cfg.TargetSize {
		cfg.MaxSegmentLength = cfg.TargetSize
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits text into ordered, overlapping segments. Segments covering
// only whitespace are dropped. The overlap plus sentence preservation
// guarantees that any substring spanning a window boundary still appears
// intact in at least one segment.
func (c *Chunker) Chunk(text string) []Segment {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	// Very short inputs become a single chunk. The offset is the byte
	// length of the leading whitespace; a byte search could land inside a
	// multibyte whitespace rune.
	if len(trimmed) <= c.cfg.TargetSize/10 {
		offset := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
		return []Segment{{Text: trimmed, Offset: offset}}
	}

	var segments []Segment
	for _, coarse := range c.coarseSpans(text) {
		segments = append(segments, c.windows(text, coarse)...)
	}
	return segments
}

// span is a half-open [start, end) character range into the source text.
type span struct {
	start, end int
}

// coarseSpans pre-splits text materially larger than MaxSegmentLength into
// contiguous spans along paragraph breaks, falling back to line breaks, then
// sentence ends, then fixed offsets for pathological inputs.
func (c *Chunker) coarseSpans(text string) []span {
	whole := span{0, len(text)}
	if len(text) <= c.cfg.MaxSegmentLength {
		return []span{whole}
	}

	cuts := cutPositions(text, "\n\n")
	if len(cuts) == 0 {
		cuts = cutPositions(text, "\n")
	}

	var spans []span
	for _, piece := range packSpans(whole, cuts, c.cfg.MaxSegmentLength) {
		if piece.end-piece.start <= c.cfg.MaxSegmentLength {
			spans = append(spans, piece)
			continue
		}
		spans = append(spans, c.splitOversized(text, piece)...)
	}
	return spans
}

// splitOversized splits a span that has no usable paragraph breaks at
// sentence-ending punctuation, and as a last resort at fixed offsets.
func (c *Chunker) splitOversized(text string, s span) []span {
	var cuts []int
	for pos := s.start; pos < s.end; {
		next := nextSentenceEnd(text, pos, s.end, c.cfg.Multilingual)
		if next < 0 {
			break
		}
		cuts = append(cuts, next)
		pos = next
	}

	var spans []span
	for _, piece := range packSpans(s, cuts, c.cfg.MaxSegmentLength) {
		if piece.end-piece.start <= c.cfg.MaxSegmentLength {
			spans = append(spans, piece)
			continue
		}
		// Fixed character offsets.
		for start := piece.start; start < piece.end; start += c.cfg.MaxSegmentLength {
			end := start + c.cfg.MaxSegmentLength
			if end > piece.end {
				end = piece.end
			}
			spans = append(spans, span{start, end})
		}
	}
	return spans
}

// cutPositions returns the positions immediately after each occurrence of sep.
func cutPositions(text, sep string) []int {
	var cuts []int
	offset := 0
	for {
		idx := strings.Index(text[offset:], sep)
		if idx < 0 {
			return cuts
		}
		offset += idx + len(sep)
		cuts = append(cuts, offset)
	}
}

// packSpans greedily accumulates the ranges between cut positions into
// contiguous spans no longer than limit. Ranges that alone exceed the limit
// are emitted as-is for the caller to split further.
func packSpans(s span, cuts []int, limit int) []span {
	bounds := make([]int, 0, len(cuts)+2)
	bounds = append(bounds, s.start)
	for _, cut := range cuts {
		if cut > s.start && cut < s.end {
			bounds = append(bounds, cut)
		}
	}
	bounds = append(bounds, s.end)

	var spans []span
	start := bounds[0]
	for i := 1; i < len(bounds); i++ {
		if bounds[i]-start > limit && bounds[i-1] > start {
			spans = append(spans, span{start, bounds[i-1]})
			start = bounds[i-1]
		}
	}
	if start < s.end {
		spans = append(spans, span{start, s.end})
	}
	return spans
}

// windows slides a TargetSize window across the span, extending the right
// edge to the next sentence end (within slack) and pulling the next start
// back to a clean sentence start inside the overlap region.
func (c *Chunker) windows(text string, s span) []Segment {
	var segments []Segment

	start := s.start
	for start < s.end {
		end := start + c.cfg.TargetSize
		if end > s.end {
			end = s.end
		}

		if c.cfg.PreserveSentences && end < s.end {
			ext := nextSentenceEnd(text, end, s.end, c.cfg.Multilingual)
			if ext > 0 && ext-start <= c.cfg.TargetSize+sentenceSlack {
				end = ext
			}
		}

		if seg, ok := trimWindow(text, start, end); ok {
			segments = append(segments, seg)
		}

		if end >= s.end {
			break
		}

		next := end - c.cfg.OverlapSize
		if c.cfg.PreserveSentences {
			pulled := prevSentenceStart(text, next, start, c.cfg.Multilingual)
			// Loop-safety guard: never move before the current window's own
			// start or past its end.
			if pulled > start && pulled < end {
				next = pulled
			}
		}

		// Non-termination guard: when the computed start fails to advance
		// (overlap meeting or exceeding the window), force it to the
		// previous window's end.
		if next <= start {
			next = end
		}
		start = next
	}
	return segments
}

// trimWindow trims surrounding whitespace from the window, keeping the offset
// pointing at the first retained character. Whitespace-only windows report ok=false.
func trimWindow(text string, start, end int) (Segment, bool) {
	window := text[start:end]
	trimmed := strings.TrimLeft(window, " \t\r\n")
	offset := start + (len(window) - len(trimmed))
	trimmed = strings.TrimRight(trimmed, " \t\r\n")
	if trimmed == "" {
		return Segment{}, false
	}
	return Segment{Text: trimmed, Offset: offset}, true
}
