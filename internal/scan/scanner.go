// Package scan implements byte-level string, pattern, and entropy scanning
// shared by the extractors.
package scan

// StringHit is one accepted printable run.
type StringHit struct {
	Value  string
	Offset int64 // absolute offset in the dump
	Wide   bool  // true for UTF-16LE runs
}

// Options bounds accepted string runs.
type Options struct {
	MinLength int
	MaxLength int
	ASCII     bool
	Wide      bool
}

// DefaultOptions returns the default scanner bounds.
func DefaultOptions() Options {
	return Options{
		MinLength: 4,
		MaxLength: 256,
		ASCII:     true,
		Wide:      true,
	}
}

// Scanner extracts printable string runs from raw bytes.
type Scanner struct {
	opts Options
}

// NewScanner creates a scanner with the given bounds.
func NewScanner(opts Options) *Scanner {
	if opts.MinLength < 1 {
		opts.MinLength = 1
	}
	if opts.MaxLength < opts.MinLength {
		opts.MaxLength = opts.MinLength
	}
	return &Scanner{opts: opts}
}

func printable(b byte) bool {
	return b >= 0x20 && b <= 0x7e
}

// Scan runs a single forward pass over data and returns accepted ASCII and
// UTF-16LE runs. Offsets are absolute: base + local offset. Runs longer
// than the maximum are truncated there and the remainder of the run is
// skipped, so one giant run cannot dominate output.
func (s *Scanner) Scan(data []byte, base int64) []StringHit {
	var hits []StringHit
	if s.opts.ASCII {
		hits = append(hits, s.scanASCII(data, base)...)
	}
	if s.opts.Wide {
		hits = append(hits, s.scanWide(data, base)...)
	}
	return hits
}

func (s *Scanner) scanASCII(data []byte, base int64) []StringHit {
	var hits []StringHit
	i := 0
	for i < len(data) {
		if !printable(data[i]) {
			i++
			continue
		}
		start := i
		for i < len(data) && printable(data[i]) {
			i++
		}
		runLen := i - start
		if runLen < s.opts.MinLength {
			continue
		}
		if runLen > s.opts.MaxLength {
			runLen = s.opts.MaxLength
		}
		hits = append(hits, StringHit{
			Value:  string(data[start : start+runLen]),
			Offset: base + int64(start),
		})
	}
	return hits
}

// scanWide finds runs of 16-bit little-endian code units whose low byte is
// printable and high byte is zero. The pass advances one byte at a time
// outside runs so both alignments are covered.
func (s *Scanner) scanWide(data []byte, base int64) []StringHit {
	var hits []StringHit
	i := 0
	for i+1 < len(data) {
		if !(printable(data[i]) && data[i+1] == 0) {
			i++
			continue
		}
		start := i
		for i+1 < len(data) && printable(data[i]) && data[i+1] == 0 {
			i += 2
		}
		units := (i - start) / 2
		if units < s.opts.MinLength {
			continue
		}
		if units > s.opts.MaxLength {
			units = s.opts.MaxLength
		}
		buf := make([]byte, units)
		for j := 0; j < units; j++ {
			buf[j] = data[start+j*2]
		}
		hits = append(hits, StringHit{
			Value:  string(buf),
			Offset: base + int64(start),
			Wide:   true,
		})
	}
	return hits
}
