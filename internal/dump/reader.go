package dump

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"syscall"

	"github.com/dumpsleuth/pkg/collections"
	apperrors "github.com/dumpsleuth/pkg/errors"
	"github.com/dumpsleuth/pkg/model"
	"github.com/dumpsleuth/pkg/utils"
)

const (
	// DefaultChunkSize is the reader window size.
	DefaultChunkSize = 4 * 1024 * 1024
	// DefaultOverlap is the window overlap, sized to the longest supported
	// pattern so matches spanning a chunk boundary are not missed.
	DefaultOverlap = 4096
	// DefaultBufferSize is the streamed-hash read buffer.
	DefaultBufferSize = 1024 * 1024
)

// Options configures a Reader.
type Options struct {
	ChunkSize  int
	BufferSize int
	Overlap    int
	Logger     utils.Logger
}

// DefaultOptions returns default reader options.
func DefaultOptions() Options {
	return Options{
		ChunkSize:  DefaultChunkSize,
		BufferSize: DefaultBufferSize,
		Overlap:    DefaultOverlap,
		Logger:     &utils.NullLogger{},
	}
}

// Chunk is a bounded byte window of the dump. Data is borrowed from the
// reader's mapping and must not be retained past the reader's lifetime;
// use Copy when ownership is needed.
type Chunk struct {
	Index  int
	Offset int64
	Data   []byte
}

// End returns the exclusive end offset of the window.
func (c Chunk) End() int64 {
	return c.Offset + int64(len(c.Data))
}

// Copy returns an owned copy of the window bytes.
func (c Chunk) Copy() []byte {
	out := make([]byte, len(c.Data))
	copy(out, c.Data)
	return out
}

// Reader provides chunked, memory-mapped access to one dump file. The
// mapping is read-only and safely shared by concurrent workers. The Reader
// exclusively owns the file handle for its lifetime.
type Reader struct {
	path      string
	file      *os.File
	data      []byte // mmap window, nil when falling back to pread
	size      int64
	chunkSize int
	overlap   int
	info      model.DumpInfo
	logger    utils.Logger
}

// Open maps the dump at path, detects its format, and computes the content
// hash in one streamed pass. An unreadable or zero-length file is an
// ingestion failure; everything past that point is recoverable.
func Open(path string, opts Options) (*Reader, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Overlap <= 0 {
		opts.Overlap = DefaultOverlap
	}
	if opts.Logger == nil {
		opts.Logger = &utils.NullLogger{}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIngestionFailed, "cannot open dump file", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, apperrors.Wrap(apperrors.CodeIngestionFailed, "cannot stat dump file", err)
	}
	size := stat.Size()
	if size == 0 {
		file.Close()
		return nil, apperrors.Wrap(apperrors.CodeIngestionFailed, "dump file is empty", apperrors.ErrIngestionFailed)
	}

	r := &Reader{
		path:      path,
		file:      file,
		size:      size,
		chunkSize: opts.ChunkSize,
		overlap:   opts.Overlap,
		logger:    opts.Logger,
	}

	data, err := syscall.Mmap(int(file.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		// Mapping can fail on exotic filesystems; chunked pread still works.
		opts.Logger.Warn("mmap failed for %s, falling back to buffered reads: %v", path, err)
	} else {
		r.data = data
	}

	header := make([]byte, HeaderSize)
	n, err := r.readAt(header, 0)
	if n == 0 && err != nil {
		r.Close()
		return nil, apperrors.Wrap(apperrors.CodeIngestionFailed, "cannot read dump header", err)
	}
	det := Detect(header[:n], size)

	hash, err := r.contentHash(opts.BufferSize)
	if err != nil {
		r.Close()
		return nil, apperrors.Wrap(apperrors.CodeIngestionFailed, "cannot hash dump content", err)
	}

	r.info = model.DumpInfo{
		Path:        path,
		Size:        size,
		ContentHash: hash,
		Format:      det.Format,
		Truncated:   det.Truncated,
		Metadata:    det.Metadata,
	}

	opts.Logger.Debug("opened dump %s: size=%d format=%s hash=%s", path, size, det.Format, hash[:12])
	return r, nil
}

// Info returns the dump summary. Read-only after Open.
func (r *Reader) Info() model.DumpInfo {
	return r.info
}

// Size returns the dump length in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// NumChunks returns how many windows one full iteration yields.
func (r *Reader) NumChunks() int {
	return int((r.size + int64(r.chunkSize) - 1) / int64(r.chunkSize))
}

// Chunks returns a fresh iterator over the dump's windows. Each call
// restarts from offset 0 independently, so multiple passes are possible.
func (r *Reader) Chunks() *ChunkIter {
	return &ChunkIter{reader: r}
}

// readAt fills buf from the mapping or the file, returning the bytes read.
// Short reads at the truncated tail are not errors.
func (r *Reader) readAt(buf []byte, off int64) (int, error) {
	if off >= r.size {
		return 0, io.EOF
	}
	if r.data != nil {
		n := copy(buf, r.data[off:])
		return n, nil
	}
	n, err := r.file.ReadAt(buf, off)
	if err == io.EOF && n > 0 {
		return n, nil
	}
	return n, err
}

// hashBuffers pools the streamed-hash read buffers so analyzing many
// dumps in one process does not allocate a fresh buffer per dump.
var hashBuffers = collections.NewBytePool(DefaultBufferSize)

// contentHash streams the whole dump through SHA-256. The hash is the
// dump's stable identity for caching.
func (r *Reader) contentHash(bufferSize int) (string, error) {
	h := sha256.New()
	buf, release := hashBuffers.Get(bufferSize)
	defer release()
	var off int64
	for off < r.size {
		n, err := r.readAt(buf, off)
		if n > 0 {
			h.Write(buf[:n])
			off += int64(n)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
		if n == 0 {
			break
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Close unmaps and closes the dump file.
func (r *Reader) Close() error {
	var first error
	if r.data != nil {
		if err := syscall.Munmap(r.data); err != nil {
			first = err
		}
		r.data = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && first == nil {
			first = err
		}
		r.file = nil
	}
	return first
}

// ChunkIter lazily yields successive windows of the dump. Windows advance
// by the chunk size but extend one overlap region into the next window.
// Read errors past a recoverable point yield the partial final chunk
// rather than failing the whole read.
type ChunkIter struct {
	reader *Reader
	index  int
	done   bool
}

// Next returns the next chunk, or ok=false when iteration is finished.
func (it *ChunkIter) Next() (Chunk, bool) {
	if it.done {
		return Chunk{}, false
	}

	r := it.reader
	offset := int64(it.index) * int64(r.chunkSize)
	if offset >= r.size {
		it.done = true
		return Chunk{}, false
	}

	end := offset + int64(r.chunkSize) + int64(r.overlap)
	if end > r.size {
		end = r.size
	}

	var data []byte
	if r.data != nil {
		data = r.data[offset:end]
	} else {
		buf := make([]byte, end-offset)
		n, err := r.readAt(buf, offset)
		if n == 0 {
			if err != nil && err != io.EOF {
				r.logger.Warn("read failed at offset %d, stopping with partial coverage: %v", offset, err)
			}
			it.done = true
			return Chunk{}, false
		}
		data = buf[:n]
	}

	chunk := Chunk{Index: it.index, Offset: offset, Data: data}
	it.index++
	return chunk, true
}
