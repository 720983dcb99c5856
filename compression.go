package stocksql

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/nao1215/stocksql/domain/model"
)

// compressionHandler wraps readers and writers of one compression type
type compressionHandler struct {
	compressionType model.CompressionType
}

// newCompressionHandler creates a new compression handler for the given compression type
func newCompressionHandler(compressionType model.CompressionType) *compressionHandler {
	return &compressionHandler{
		compressionType: compressionType,
	}
}

// createReader wraps reader with a decompression reader if needed
func (h *compressionHandler) createReader(reader io.Reader) (io.Reader, func() error, error) {
	switch h.compressionType {
	case model.CompressionNone:
		return reader, func() error { return nil }, nil

	case model.CompressionGZ:
		gzReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzReader, gzReader.Close, nil

	case model.CompressionBZ2:
		// bzip2.NewReader doesn't need closing
		return bzip2.NewReader(reader), func() error { return nil }, nil

	case model.CompressionXZ:
		xzReader, err := xz.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzReader, func() error { return nil }, nil

	case model.CompressionZSTD:
		decoder, err := zstd.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return decoder, func() error {
			decoder.Close()
			return nil
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported compression type for reading: %v", h.compressionType)
	}
}

// createWriter wraps writer with a compression writer if needed
func (h *compressionHandler) createWriter(writer io.Writer) (io.Writer, func() error, error) {
	switch h.compressionType {
	case model.CompressionNone:
		return writer, func() error { return nil }, nil

	case model.CompressionGZ:
		gzWriter := gzip.NewWriter(writer)
		return gzWriter, gzWriter.Close, nil

	case model.CompressionXZ:
		xzWriter, err := xz.NewWriter(writer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return xzWriter, xzWriter.Close, nil

	case model.CompressionZSTD:
		zstdWriter, err := zstd.NewWriter(writer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zstdWriter, zstdWriter.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported compression type for writing: %v", h.compressionType)
	}
}

// createWriterForFile creates path and returns a writer that compresses into it.
// The returned cleanup flushes the compressor, then syncs and closes the file.
func createWriterForFile(path string, compressionType model.CompressionType) (io.Writer, func() error, error) {
	file, err := os.Create(path) //nolint:gosec // User-provided path is necessary for file operations
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file: %w", err)
	}

	writer, cleanup, err := newCompressionHandler(compressionType).createWriter(file)
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}

	compositeCleanup := func() error {
		cleanupErr := cleanup()
		if syncErr := file.Sync(); syncErr != nil && cleanupErr == nil {
			cleanupErr = syncErr
		}
		if closeErr := file.Close(); closeErr != nil && cleanupErr == nil {
			cleanupErr = closeErr
		}
		return cleanupErr
	}
	return writer, compositeCleanup, nil
}
