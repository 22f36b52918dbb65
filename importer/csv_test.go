package importer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCSVBasic(t *testing.T) {
	data := []byte("title,start,user_name\nPractice,2999-01-01 10:00:00,Alice\n")

	records, err := parseCSV(data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Practice", records[0]["title"])
	require.Equal(t, "2999-01-01 10:00:00", records[0]["start"])
	require.Equal(t, "Alice", records[0]["user_name"])
}

func TestParseCSVHeaderSynonyms(t *testing.T) {
	// owner and created_by both resolve to user_name; Name resolves to
	// title regardless of case
	data := []byte("Name,Begin,Owner\nStandup,2999-01-02 09:00:00,Bob\n")

	records, err := parseCSV(data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Standup", records[0]["title"])
	require.Equal(t, "2999-01-02 09:00:00", records[0]["start"])
	require.Equal(t, "Bob", records[0]["user_name"])
}

func TestParseCSVDropsUnusableRows(t *testing.T) {
	data := []byte("title,start\nGood,2999-01-01 10:00:00\n,,\n\nAlso Good,2999-01-02 10:00:00\n")

	records, err := parseCSV(data)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Good", records[0]["title"])
	require.Equal(t, "Also Good", records[1]["title"])
}

func TestParseCSVUnrecognizedColumnsIgnored(t *testing.T) {
	data := []byte("title,start,shoe_size\nRun,2999-01-01 10:00:00,44\n")

	records, err := parseCSV(data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	_, hasShoeSize := records[0]["shoe_size"]
	require.False(t, hasShoeSize)
}

func TestParseCSVNoRecognizedHeaders(t *testing.T) {
	data := []byte("foo,bar\n1,2\n")

	_, err := parseCSV(data)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestParseCSVNoUsableRecords(t *testing.T) {
	data := []byte("title,start\n")

	_, err := parseCSV(data)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
}
