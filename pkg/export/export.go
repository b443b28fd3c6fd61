// Package export writes result lines to files, optionally compressed.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the file encoding.
type Compression string

const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

// CompressionFromPath picks the encoding from the file extension:
// .gz is gzip, .zst and .zstd are zstd, anything else is plain text.
func CompressionFromPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	default:
		return None
	}
}

// WriteLines writes each line followed by a newline.
func WriteLines(w io.Writer, lines []string, c Compression) error {
	var (
		out    io.Writer = w
		closer io.Closer
	)

	switch c {
	case Gzip:
		zw := gzip.NewWriter(w)
		out, closer = zw, zw
	case Zstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("create zstd writer: %w", err)
		}
		out, closer = zw, zw
	case None, "":
	default:
		return fmt.Errorf("unknown compression %q", c)
	}

	bw := bufio.NewWriter(out)
	for _, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if closer != nil {
		return closer.Close()
	}
	return nil
}

// WriteFile writes lines to path using the encoding implied by its extension.
func WriteFile(path string, lines []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := WriteLines(f, lines, CompressionFromPath(path)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFile returns the text of an exported file, decompressing as needed.
func ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	switch CompressionFromPath(path) {
	case Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("open gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	case Zstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
