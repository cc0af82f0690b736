package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"verbatim/internal/model"
	"verbatim/internal/repository"
	"verbatim/internal/utils"
)

var historyRepo repository.Store

// InitHistoryRepository enables the history endpoints.
func InitHistoryRepository(repo repository.Store) {
	historyRepo = repo
}

func requireHistory(c *gin.Context) bool {
	if historyRepo == nil {
		utils.Error(c, http.StatusServiceUnavailable, "job history is disabled (HISTORY_DB not set)")
		return false
	}
	return true
}

// getHistory handles GET /api/v1/history
func getHistory(c *gin.Context) {
	if !requireHistory(c) {
		return
	}
	limit, offset := parsePagination(c)

	records, err := historyRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		log.Printf("[History] Error listing records: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to retrieve history")
		return
	}

	utils.Success(c, gin.H{
		"items":  historyItems(records),
		"limit":  limit,
		"offset": offset,
		"count":  len(records),
	})
}

// searchHistory handles GET /api/v1/history/search
func searchHistory(c *gin.Context) {
	if !requireHistory(c) {
		return
	}
	query := c.Query("q")
	if query == "" {
		utils.Error(c, http.StatusBadRequest, "search query (q) is required")
		return
	}
	limit, offset := parsePagination(c)

	records, err := historyRepo.Search(c.Request.Context(), query, limit, offset)
	if err != nil {
		log.Printf("[History] Error searching records: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to search")
		return
	}

	utils.Success(c, gin.H{
		"query":  query,
		"items":  historyItems(records),
		"limit":  limit,
		"offset": offset,
		"count":  len(records),
	})
}

// getHistoryDetail handles GET /api/v1/history/:id
func getHistoryDetail(c *gin.Context) {
	if !requireHistory(c) {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid id format")
		return
	}

	rec, err := historyRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(c, http.StatusNotFound, "job record not found")
			return
		}
		log.Printf("[History] Error getting record: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to retrieve record")
		return
	}

	resp := gin.H{
		"id":          rec.ID.String(),
		"source_name": rec.SourceName,
		"status":      string(rec.Status),
		"word_count":  rec.WordCount,
		"created_at":  rec.CreatedAt,
	}
	if rec.ErrorKind != nil {
		resp["error_kind"] = *rec.ErrorKind
	}
	if rec.ErrorMessage != nil {
		resp["error_message"] = *rec.ErrorMessage
	}
	if rec.Language != nil {
		resp["language"] = *rec.Language
	}
	if rec.DurationSec != nil {
		resp["duration_seconds"] = *rec.DurationSec
	}
	if rec.Transcript != nil {
		resp["transcript"] = *rec.Transcript
	}
	if rec.FinishedAt != nil {
		resp["finished_at"] = *rec.FinishedAt
	}
	utils.Success(c, resp)
}

// deleteHistory handles DELETE /api/v1/history/:id
func deleteHistory(c *gin.Context) {
	if !requireHistory(c) {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid id format")
		return
	}

	if err := historyRepo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(c, http.StatusNotFound, "job record not found")
			return
		}
		log.Printf("[History] Error deleting record: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to delete record")
		return
	}

	utils.Success(c, gin.H{
		"id":     id.String(),
		"status": "deleted",
	})
}

func historyItems(records []model.JobRecord) []gin.H {
	items := make([]gin.H, 0, len(records))
	for _, rec := range records {
		item := gin.H{
			"id":          rec.ID.String(),
			"source_name": rec.SourceName,
			"status":      string(rec.Status),
			"word_count":  rec.WordCount,
			"created_at":  rec.CreatedAt,
		}
		if rec.ErrorKind != nil {
			item["error_kind"] = *rec.ErrorKind
		}
		if rec.Language != nil {
			item["language"] = *rec.Language
		}
		if rec.Transcript != nil && *rec.Transcript != "" {
			preview := *rec.Transcript
			if len(preview) > 100 {
				preview = preview[:100] + "..."
			}
			item["transcript_preview"] = preview
		}
		items = append(items, item)
	}
	return items
}

func parsePagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100 // Max limit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
