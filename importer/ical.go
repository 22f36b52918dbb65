package importer

import (
	"bufio"
	"bytes"
	"strings"
	"time"

	"example.com/backstage/services/scheduler/models"
)

// parseICal walks a calendar-interchange file line by line, tracking
// enter/exit of event blocks and capturing colon-delimited property
// pairs inside each block. A file without the top-level calendar marker,
// or with no event blocks, is a FormatError.
func parseICal(data []byte) ([]RawRecord, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	sawMarker := false
	inEvent := false
	var current RawRecord
	var records []RawRecord

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		upper := strings.ToUpper(trimmed)

		if !sawMarker {
			if upper != "BEGIN:VCALENDAR" {
				return nil, &FormatError{Reason: "missing BEGIN:VCALENDAR marker"}
			}
			sawMarker = true
			continue
		}

		switch upper {
		case "BEGIN:VEVENT":
			inEvent = true
			current = RawRecord{}
			continue
		case "END:VEVENT":
			if inEvent && len(current) > 0 {
				records = append(records, current)
			}
			inEvent = false
			continue
		}

		if !inEvent {
			continue
		}

		name, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}

		// Parameters after ';' (TZID and friends) are stripped along
		// with the rest of the zone information, see decodeICalTime.
		name, params, _ := strings.Cut(name, ";")
		name = strings.ToUpper(name)
		value = strings.TrimSpace(value)

		switch name {
		case "SUMMARY":
			current["title"] = value
		case "DTSTART":
			current["start"] = decodeICalTime(value)
		case "DTEND":
			current["end"] = decodeICalTime(value)
		case "DESCRIPTION":
			current["description"] = value
		case "ORGANIZER", "ATTENDEE":
			if _, present := current["user_name"]; !present {
				current["user_name"] = participantName(params, value)
			}
		}
	}

	if len(records) == 0 {
		return nil, &FormatError{Reason: "no event blocks found"}
	}

	return records, nil
}

// decodeICalTime converts a fixed-width YYYYMMDDHHMMSS value (optionally
// with a T separator, a trailing Z, or a date-only form) into the
// canonical timestamp layout. Zone markers are stripped, not converted;
// the digits are read as local wall-clock time. Unrecognized values pass
// through untouched for the validator to reject.
func decodeICalTime(value string) string {
	value = strings.TrimSuffix(strings.TrimSpace(value), "Z")
	value = strings.Replace(value, "T", "", 1)

	switch len(value) {
	case 14:
		if t, err := time.ParseInLocation("20060102150405", value, time.Local); err == nil {
			return t.Format(models.TimeFormat)
		}
	case 8:
		if t, err := time.ParseInLocation("20060102", value, time.Local); err == nil {
			return t.Format(models.TimeFormat)
		}
	}

	return value
}

// participantName extracts a usable display name from an ORGANIZER or
// ATTENDEE property, preferring the CN parameter over the address value
func participantName(params, value string) string {
	if idx := strings.Index(strings.ToUpper(params), "CN="); idx >= 0 {
		name := params[idx+3:]
		if end := strings.Index(name, ";"); end >= 0 {
			name = name[:end]
		}
		return strings.Trim(name, `"`)
	}
	return strings.TrimPrefix(strings.TrimPrefix(value, "mailto:"), "MAILTO:")
}
