package importer

import (
	"path/filepath"
	"strings"
)

// Format identifies one of the supported input formats
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatICal Format = "ical"
)

// RawRecord is one loosely-typed record extracted from an uploaded file.
// Keys are canonical field names (title, start, end, user_name,
// description, color); no validation has happened yet.
type RawRecord map[string]string

// extensionFormats maps recognized file extensions to formats
var extensionFormats = map[string]Format{
	".json": FormatJSON,
	".csv":  FormatCSV,
	".txt":  FormatCSV,
	".ics":  FormatICal,
	".ical": FormatICal,
}

// sniffLimit bounds how much content DetectFormat inspects
const sniffLimit = 1024

// DetectFormat selects exactly one parser for the given file. The
// extension wins when recognized; otherwise the leading content decides:
// a calendar marker selects ical, a JSON opener selects json, anything
// else defaults to csv.
func DetectFormat(filename string, data []byte) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	if format, ok := extensionFormats[ext]; ok {
		return format
	}

	head := data
	if len(head) > sniffLimit {
		head = head[:sniffLimit]
	}
	content := strings.TrimSpace(string(head))

	switch {
	case strings.HasPrefix(strings.ToUpper(content), "BEGIN:VCALENDAR"):
		return FormatICal
	case strings.HasPrefix(content, "{") || strings.HasPrefix(content, "["):
		return FormatJSON
	default:
		return FormatCSV
	}
}

// Parse runs the parser for the given format over the raw bytes
func Parse(format Format, data []byte) ([]RawRecord, error) {
	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatCSV:
		return parseCSV(data)
	case FormatICal:
		return parseICal(data)
	default:
		return nil, &FormatError{Reason: "unsupported format " + string(format)}
	}
}
