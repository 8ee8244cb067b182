// Package input opens log files for the clean and extract commands.
//
// Files ending in .gz, .zst or .lz4 are decompressed transparently. Plain
// files read whole are memory-mapped on unix systems.
package input

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how an input file is encoded.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

// String returns the human-readable name of a compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// DetectCompression chooses a compression from the file extension.
// Matching is case-insensitive.
func DetectCompression(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Open returns a streaming reader over the decoded contents of path.
// The caller must close it.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	rc, err := decoder(f, DetectCompression(path))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rc, nil
}

// decoder wraps f in the decompressor for c. Closing the result closes f.
func decoder(f *os.File, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return f, nil

	case CompressionGzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &stackedReader{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil

	case CompressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return &stackedReader{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			f.Close,
		}}, nil

	case CompressionLZ4:
		return &stackedReader{Reader: lz4.NewReader(f), closers: []func() error{f.Close}}, nil

	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

// stackedReader reads from the outermost decoder and closes every layer in
// order, returning the first error.
type stackedReader struct {
	io.Reader
	closers []func() error
}

func (r *stackedReader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

// Source is the full decoded contents of an input file.
type Source struct {
	Data        []byte
	Compression Compression
	Mapped      bool

	release func() error
}

// Close releases the memory map, if any. Data must not be used afterwards.
// Close is idempotent.
func (s *Source) Close() error {
	if s.release == nil {
		return nil
	}
	release := s.release
	s.release = nil
	s.Data = nil
	return release()
}

// ReadAll loads path into memory. Plain files are memory-mapped where the
// platform allows it; compressed files are decoded into a heap buffer.
func ReadAll(path string) (*Source, error) {
	c := DetectCompression(path)
	if c != CompressionNone {
		rc, err := Open(path)
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return &Source{Data: data, Compression: c}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return &Source{Data: data}, nil
	}

	data, release, err := mapFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", path, err)
	}
	return &Source{Data: data, Mapped: release != nil, release: release}, nil
}
