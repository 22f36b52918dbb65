package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/scheduler/importer"
)

// importFileField is the multipart field carrying the uploaded file
const importFileField = "import_file"

// recordPreview is one row of the validate action's detailed preview
type recordPreview struct {
	Index int                `json:"index"`
	Valid bool               `json:"valid"`
	Error string             `json:"error,omitempty"`
	Data  importer.RawRecord `json:"data"`
}

// handleImport dispatches the import pipeline actions: formats, validate,
// preview and import. All but formats require an uploaded file.
func (s *Server) handleImport(c *gin.Context) {
	action := c.DefaultPostForm("action", "import")

	if action == "formats" {
		s.describeFormats(c)
		return
	}

	records, format, ok := s.parseUpload(c)
	if !ok {
		return
	}

	switch action {
	case "validate":
		s.validateBatch(c, records, format, true)
	case "preview":
		s.validateBatch(c, records, format, false)
	case "import":
		s.importBatch(c, records)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action " + action})
	}
}

// parseUpload reads the uploaded file, enforces the size cap and runs
// format detection and parsing. Writes the error response itself when
// the upload is unusable.
func (s *Server) parseUpload(c *gin.Context) ([]importer.RawRecord, importer.Format, bool) {
	file, header, err := c.Request.FormFile(importFileField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing import_file upload"})
		return nil, "", false
	}
	defer file.Close()

	maxSize := s.cfg.ImportMaxFileSize

	// Header first, then the actual byte count; clients lie about both
	if header.Size > maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the maximum size"})
		return nil, "", false
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return nil, "", false
	}
	if int64(len(data)) > maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the maximum size"})
		return nil, "", false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded file is empty"})
		return nil, "", false
	}

	format := importer.DetectFormat(header.Filename, data)
	records, err := importer.Parse(format, data)
	if err != nil {
		var formatErr *importer.FormatError
		if errors.As(err, &formatErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": formatErr.Error(), "format": format})
			return nil, "", false
		}
		log.Error().Err(err).Str("format", string(format)).Msg("Unexpected parse failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to parse file"})
		return nil, "", false
	}

	return records, format, true
}

// validateBatch dry-runs validation and reports without persisting.
// detailed selects the per-record detailed preview over the raw one.
func (s *Server) validateBatch(c *gin.Context, records []importer.RawRecord, format importer.Format, detailed bool) {
	result := s.importer.Check(c.Request.Context(), records)

	response := gin.H{
		"valid":         result.ErrorCount == 0 && result.TotalEvents > 0,
		"format":        format,
		"event_count":   result.TotalEvents,
		"within_limits": result.TotalEvents <= s.importer.MaxEvents(),
	}

	if detailed {
		previews := make([]recordPreview, 0, len(records))
		failed := make(map[int]string, len(result.Errors))
		for _, recordErr := range result.Errors {
			failed[recordErr.Index] = recordErr.Error
		}
		for idx, record := range records {
			p := recordPreview{Index: idx, Valid: true, Data: record}
			if msg, bad := failed[idx]; bad {
				p.Valid = false
				p.Error = msg
			}
			previews = append(previews, p)
		}
		response["detailed_preview"] = previews
	} else {
		response["preview"] = records
	}

	c.JSON(http.StatusOK, response)
}

// importBatch runs the real import and maps the error taxonomy onto
// HTTP statuses
func (s *Server) importBatch(c *gin.Context, records []importer.RawRecord) {
	actingUserID := actingUser(c)

	result, err := s.importer.Import(c.Request.Context(), records, actingUserID)
	if err != nil {
		var limitErr *importer.LimitError
		if errors.As(err, &limitErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": limitErr.Error()})
			return
		}

		var persistErr *importer.PersistenceError
		if errors.As(err, &persistErr) {
			// Nothing was imported; do not imply partial success
			c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed, no events were imported"})
			return
		}

		log.Error().Err(err).Msg("Import failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// describeFormats returns the static capability description clients use
// to render upload guidance
func (s *Server) describeFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats": []gin.H{
			{
				"format":     importer.FormatJSON,
				"extensions": []string{".json"},
				"notes":      "one event object or an array of event objects",
			},
			{
				"format":     importer.FormatCSV,
				"extensions": []string{".csv", ".txt"},
				"notes":      "header row required; recognized headers include title, start, end, user_name and common synonyms",
			},
			{
				"format":     importer.FormatICal,
				"extensions": []string{".ics", ".ical"},
				"notes":      "standard calendar files; timezone markers are ignored",
			},
		},
		"limits": gin.H{
			"max_events":         s.importer.MaxEvents(),
			"max_file_size":      s.cfg.ImportMaxFileSize,
			"title_limit_import": "none",
		},
		"required_fields": []string{"title", "start", "user_name"},
		"optional_fields": []string{"end", "description", "color"},
	})
}

// actingUser reads the optional X-User-ID header
func actingUser(c *gin.Context) uint {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
