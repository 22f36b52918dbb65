package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
)

// fieldSynonyms maps canonical field names to the header spellings that
// select them. Resolved once per parse, case-insensitively.
var fieldSynonyms = map[string][]string{
	"title":       {"title", "name", "event", "event_name", "summary"},
	"start":       {"start", "start_time", "start_date", "begin", "from", "date"},
	"end":         {"end", "end_time", "end_date", "finish", "to"},
	"user_name":   {"user_name", "user", "username", "owner", "created_by"},
	"description": {"description", "desc", "details", "notes"},
	"color":       {"color", "colour"},
}

// canonicalField resolves a header name through the synonym table.
// Returns "" for unrecognized headers, whose columns are ignored.
func canonicalField(header string) string {
	header = strings.ToLower(strings.TrimSpace(header))
	for field, synonyms := range fieldSynonyms {
		for _, synonym := range synonyms {
			if header == synonym {
				return field
			}
		}
	}
	return ""
}

// parseCSV reads the first line as a header row, maps headers through the
// synonym table, then maps every subsequent non-blank line positionally.
// Rows that yield no recognized field are silently dropped; a file that
// yields zero usable records is a FormatError.
func parseCSV(data []byte) ([]RawRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &FormatError{Reason: "missing header row"}
	}

	// Resolve each column to its canonical field once
	columns := make([]string, len(header))
	recognized := false
	for i, name := range header {
		columns[i] = canonicalField(name)
		if columns[i] != "" {
			recognized = true
		}
	}
	if !recognized {
		return nil, &FormatError{Reason: "header row contains no recognized fields"}
	}

	var records []RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed line, skip it like any other unusable row
			continue
		}

		record := RawRecord{}
		for i, value := range row {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			value = strings.TrimSpace(value)
			if value != "" {
				record[columns[i]] = value
			}
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}

	if len(records) == 0 {
		return nil, &FormatError{Reason: "no usable records found"}
	}

	return records, nil
}
