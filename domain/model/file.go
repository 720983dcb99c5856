package model

import (
	"path/filepath"
	"strings"
)

// FileType represents supported file formats, without compression
type FileType int

const (
	// FileTypeCSV represents CSV file type
	FileTypeCSV FileType = iota
	// FileTypeTSV represents TSV file type
	FileTypeTSV
	// FileTypeLTSV represents LTSV file type
	FileTypeLTSV
	// FileTypeXLSX represents Excel XLSX file type
	FileTypeXLSX
	// FileTypeParquet represents Parquet file type
	FileTypeParquet
	// FileTypeUnsupported represents unsupported file type
	FileTypeUnsupported
)

// File extensions
const (
	// ExtCSV is the CSV file extension
	ExtCSV = ".csv"
	// ExtTSV is the TSV file extension
	ExtTSV = ".tsv"
	// ExtLTSV is the LTSV file extension
	ExtLTSV = ".ltsv"
	// ExtXLSX is the Excel XLSX file extension
	ExtXLSX = ".xlsx"
	// ExtParquet is the Parquet file extension
	ExtParquet = ".parquet"
	// ExtGZ is the gzip compression extension
	ExtGZ = ".gz"
	// ExtBZ2 is the bzip2 compression extension
	ExtBZ2 = ".bz2"
	// ExtXZ is the xz compression extension
	ExtXZ = ".xz"
	// ExtZSTD is the zstd compression extension
	ExtZSTD = ".zst"
)

var compressionExtensions = []string{ExtGZ, ExtBZ2, ExtXZ, ExtZSTD}

// String returns the string representation of FileType
func (ft FileType) String() string {
	switch ft {
	case FileTypeCSV:
		return "csv"
	case FileTypeTSV:
		return "tsv"
	case FileTypeLTSV:
		return "ltsv"
	case FileTypeXLSX:
		return "xlsx"
	case FileTypeParquet:
		return "parquet"
	default:
		return "unsupported"
	}
}

// Extension returns the file extension for the FileType
func (ft FileType) Extension() string {
	switch ft {
	case FileTypeCSV:
		return ExtCSV
	case FileTypeTSV:
		return ExtTSV
	case FileTypeLTSV:
		return ExtLTSV
	case FileTypeXLSX:
		return ExtXLSX
	case FileTypeParquet:
		return ExtParquet
	default:
		return ""
	}
}

// ParseFileType parses a format name such as "csv" or ".xlsx".
func ParseFileType(s string) FileType {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "csv":
		return FileTypeCSV
	case "tsv":
		return FileTypeTSV
	case "ltsv":
		return FileTypeLTSV
	case "xlsx":
		return FileTypeXLSX
	case "parquet":
		return FileTypeParquet
	default:
		return FileTypeUnsupported
	}
}

// DetectFileType detects the file format and compression from a path, e.g.
// "stock.csv.gz" is (FileTypeCSV, CompressionGZ).
func DetectFileType(path string) (FileType, CompressionType) {
	name := strings.ToLower(filepath.Base(path))

	compression := CompressionNone
	for _, c := range []CompressionType{CompressionGZ, CompressionBZ2, CompressionXZ, CompressionZSTD} {
		if strings.HasSuffix(name, c.Extension()) {
			compression = c
			name = strings.TrimSuffix(name, c.Extension())
			break
		}
	}
	return ParseFileType(filepath.Ext(name)), compression
}

// IsSupportedFile checks if the file has a supported extension
func IsSupportedFile(fileName string) bool {
	ft, _ := DetectFileType(fileName)
	return ft != FileTypeUnsupported
}
