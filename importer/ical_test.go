package importer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
SUMMARY:Team Practice
DTSTART:29990101T100000
DTEND:29990101T113000
DESCRIPTION:Weekly practice
ORGANIZER;CN=Alice:mailto:alice@example.com
END:VEVENT
BEGIN:VEVENT
SUMMARY:All Day Thing
DTSTART;VALUE=DATE:29990105
END:VEVENT
END:VCALENDAR
`

func TestParseICalEvents(t *testing.T) {
	records, err := parseICal([]byte(sampleCalendar))
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "Team Practice", records[0]["title"])
	require.Equal(t, "2999-01-01 10:00:00", records[0]["start"])
	require.Equal(t, "2999-01-01 11:30:00", records[0]["end"])
	require.Equal(t, "Weekly practice", records[0]["description"])
	require.Equal(t, "Alice", records[0]["user_name"])

	require.Equal(t, "All Day Thing", records[1]["title"])
	require.Equal(t, "2999-01-05 00:00:00", records[1]["start"])
}

func TestParseICalStripsZoneMarkers(t *testing.T) {
	// A trailing Z and a TZID parameter are both discarded; the digits
	// are read as local wall-clock time.
	require.Equal(t, "2999-01-01 10:00:00", decodeICalTime("29990101T100000Z"))
	require.Equal(t, "2999-01-01 10:00:00", decodeICalTime("29990101T100000"))
	require.Equal(t, "2999-01-05 00:00:00", decodeICalTime("29990105"))

	data := []byte("BEGIN:VCALENDAR\nBEGIN:VEVENT\nSUMMARY:X\nDTSTART;TZID=America/New_York:29990101T100000\nEND:VEVENT\nEND:VCALENDAR\n")
	records, err := parseICal(data)
	require.NoError(t, err)
	require.Equal(t, "2999-01-01 10:00:00", records[0]["start"])
}

func TestParseICalPassesThroughUnrecognizedTimes(t *testing.T) {
	// The validator, not the parser, rejects garbage dates
	require.Equal(t, "tomorrow-ish", decodeICalTime("tomorrow-ish"))
}

func TestParseICalMissingMarker(t *testing.T) {
	_, err := parseICal([]byte("BEGIN:VEVENT\nSUMMARY:X\nEND:VEVENT\n"))
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestParseICalNoEventBlocks(t *testing.T) {
	_, err := parseICal([]byte("BEGIN:VCALENDAR\nVERSION:2.0\nEND:VCALENDAR\n"))
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
}
