package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/scheduler/models"
)

// notificationResponse is one change log entry on the wire
type notificationResponse struct {
	ID        uint            `json:"id"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
	CreatedAt time.Time       `json:"created_at"`
}

// pollNotifications returns entries newer than the caller's cursor in
// ascending id order. An empty list means nothing new yet; consumers
// re-poll with the id of the last entry they saw.
func (s *Server) pollNotifications(c *gin.Context) {
	sinceID, err := parseUintParam(c.DefaultQuery("lastId", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lastId must be a non-negative integer"})
		return
	}

	limit := s.cfg.NotifyPollLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := parseUintParam(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = int(parsed)
	}

	entries, err := s.queue.Poll(c.Request.Context(), uint(sinceID), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to poll notifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": toResponses(entries)})
}

// latestNotificationID returns the current maximum entry id so a new
// consumer can establish its cursor without replaying history
func (s *Server) latestNotificationID(c *gin.Context) {
	latest, err := s.queue.LatestID(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read latest notification id")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read latest id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"latest_id": latest})
}

func toResponses(entries []models.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, notificationResponse{
			ID:        entry.ID,
			EventType: entry.EventType,
			EventData: json.RawMessage(entry.Payload),
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}

func parseUintParam(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}
