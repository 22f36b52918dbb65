package importer

import (
	"encoding/json"
	"strings"

	"example.com/backstage/services/scheduler/utils"
)

// jsonFields are the keys copied from a decoded object into a RawRecord
var jsonFields = []string{"title", "start", "end", "user_name", "description", "color"}

// parseJSON accepts either a single object carrying title and start, or
// an array of such objects. Anything else is a FormatError.
func parseJSON(data []byte) ([]RawRecord, error) {
	var objects []map[string]interface{}

	// Try an array of objects first, then a single object
	if err := json.Unmarshal(data, &objects); err != nil {
		var single map[string]interface{}
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, &FormatError{Reason: "content is not a JSON object or array of objects"}
		}
		lowered := lowerKeys(single)
		if utils.GetStringValue(lowered, "title") == "" || utils.GetStringValue(lowered, "start") == "" {
			return nil, &FormatError{Reason: "JSON object must contain title and start fields"}
		}
		objects = []map[string]interface{}{single}
	}

	if len(objects) == 0 {
		return nil, &FormatError{Reason: "JSON array contains no events"}
	}

	records := make([]RawRecord, 0, len(objects))
	for _, obj := range objects {
		lowered := lowerKeys(obj)

		record := RawRecord{}
		for _, field := range jsonFields {
			if v := utils.GetStringValue(lowered, field); v != "" {
				record[field] = v
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// lowerKeys copies a decoded object with its keys lowercased and trimmed
func lowerKeys(obj map[string]interface{}) map[string]interface{} {
	lowered := make(map[string]interface{}, len(obj))
	for key, val := range obj {
		lowered[strings.ToLower(strings.TrimSpace(key))] = val
	}
	return lowered
}
