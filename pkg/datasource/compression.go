package datasource

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// Compression is the compression format of an input file
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionXZ
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	default:
		return "none"
	}
}

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte{0x42, 0x5a, 0x68}
	xzMagic    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// DetectCompression inspects the magic bytes at the head of r.
func DetectCompression(r *bufio.Reader) Compression {
	// xz has the longest magic
	header, _ := r.Peek(len(xzMagic))

	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(header, bzip2Magic):
		return CompressionBzip2
	case bytes.HasPrefix(header, xzMagic):
		return CompressionXZ
	default:
		return CompressionNone
	}
}

// openDecompressed opens path and decompresses it on the fly if needed.
func openDecompressed(path string) (io.ReadCloser, Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, CompressionNone, err
	}

	buffered := bufio.NewReader(f)
	compression := DetectCompression(buffered)

	var reader io.Reader
	switch compression {
	case CompressionGzip:
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			f.Close()
			return nil, compression, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		reader = gz
	case CompressionBzip2:
		reader = bzip2.NewReader(buffered)
	case CompressionXZ:
		xzReader, err := xz.NewReader(buffered)
		if err != nil {
			f.Close()
			return nil, compression, fmt.Errorf("failed to create xz reader: %w", err)
		}
		reader = xzReader
	default:
		reader = buffered
	}

	return &decompressingReadCloser{reader: reader, file: f}, compression, nil
}

type decompressingReadCloser struct {
	reader io.Reader
	file   *os.File
}

func (d *decompressingReadCloser) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decompressingReadCloser) Close() error {
	if closer, ok := d.reader.(io.Closer); ok {
		closer.Close()
	}
	return d.file.Close()
}
