package api

import (
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"verbatim/internal/config"
	"verbatim/internal/jobs"
	"verbatim/internal/model"
	"verbatim/internal/storage"
	"verbatim/internal/utils"
)

var (
	cfg     *config.Config
	manager *jobs.Manager
)

// Init wires the handlers to the job manager and configuration.
func Init(c *config.Config, m *jobs.Manager) {
	cfg = c
	manager = m
}

// RegisterRoutes installs all API routes.
func RegisterRoutes(r *gin.Engine) {
	// Health check
	r.GET("/health", healthCheck)

	// API v1
	v1 := r.Group("/api/v1")
	{
		v1.POST("/jobs", submitJob)
		v1.GET("/jobs/:id/status", getJobStatus)
		v1.GET("/jobs/:id/result", getJobResult)
		v1.GET("/jobs/:id/subtitle", getJobSubtitle)
		v1.GET("/jobs/:id/events", streamJobEvents)
		v1.DELETE("/jobs/:id", cancelJob)

		v1.GET("/history", getHistory)
		v1.GET("/history/search", searchHistory)
		v1.GET("/history/:id", getHistoryDetail)
		v1.DELETE("/history/:id", deleteHistory)
	}
}

// healthCheck returns server health status
func healthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "verbatim",
	})
}

// allowedExts covers the containers ffmpeg is expected to handle; the
// normalizer still rejects files without a decodable audio track.
var allowedExts = []string{
	".mp3", ".wav", ".m4a", ".aac", ".ogg", ".flac", ".caf", ".aiff", ".aif",
	".mp4", ".mkv", ".mov", ".webm", ".avi", ".m4v", ".mpg", ".mpeg", ".ts",
}

// submitJob handles POST /api/v1/jobs: media file upload.
func submitJob(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		// Try alternative field names used by older clients.
		if file, err = c.FormFile("media"); err != nil {
			if file, err = c.FormFile("audio_file"); err != nil {
				utils.Error(c, http.StatusBadRequest, "file is required. Error: "+err.Error())
				return
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	valid := false
	for _, allowed := range allowedExts {
		if ext == allowed {
			valid = true
			break
		}
	}
	if !valid {
		utils.Error(c, http.StatusBadRequest, "unsupported media extension: "+ext)
		return
	}

	if file.Size > cfg.MaxUploadBytes {
		utils.Error(c, http.StatusBadRequest, "file size exceeds upload limit")
		return
	}

	var form struct {
		Language string `form:"language" binding:"omitempty,alpha,max=8"`
	}
	if err := c.ShouldBind(&form); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid language hint")
		return
	}

	jobID := uuid.New()
	path, err := storage.SaveUpload(file, cfg.UploadDir, jobID)
	if err != nil {
		log.Printf("[Upload] Error saving media: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to save uploaded file")
		return
	}

	id, err := manager.Submit(path, file.Filename, form.Language)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			utils.Error(c, http.StatusServiceUnavailable, "server is busy, try again later")
			return
		}
		log.Printf("[Upload] Error submitting job: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to submit job")
		return
	}

	utils.Success(c, gin.H{
		"job_id": id.String(),
		"status": string(model.JobStatusQueued),
	})
}

// getJobStatus handles GET /api/v1/jobs/:id/status
func getJobStatus(c *gin.Context) {
	snap, ok := lookupJob(c)
	if !ok {
		return
	}

	resp := gin.H{
		"job_id": snap.ID.String(),
		"state":  string(snap.Status),
	}
	if snap.ErrKind != "" {
		resp["error"] = gin.H{
			"kind":    string(snap.ErrKind),
			"message": snap.ErrMessage,
		}
	}
	utils.Success(c, resp)
}

// getJobResult handles GET /api/v1/jobs/:id/result. The word sequence is
// available once alignment completes; the subtitle URL once the job is
// done. The response shape matches the upload widget: top-level success,
// words[], srt_url.
func getJobResult(c *gin.Context) {
	snap, ok := lookupJob(c)
	if !ok {
		return
	}

	switch snap.Status {
	case model.JobStatusFailed, model.JobStatusCancelled:
		utils.ErrorWithKind(c, http.StatusConflict, string(snap.ErrKind), snap.ErrMessage)
		return
	case model.JobStatusDone, model.JobStatusSerializing:
	default:
		utils.Error(c, http.StatusConflict, "job is not finished: "+string(snap.Status))
		return
	}

	words := snap.Words
	if words == nil {
		words = []model.Word{}
	}
	resp := gin.H{
		"success": true,
		"words":   words,
		"gaps":    snap.Gaps,
	}
	if snap.DetectedLanguage != "" {
		resp["language"] = snap.DetectedLanguage
	}
	if snap.Status == model.JobStatusDone {
		resp["srt_url"] = "/api/v1/jobs/" + snap.ID.String() + "/subtitle"
	}
	c.JSON(http.StatusOK, resp)
}

// getJobSubtitle handles GET /api/v1/jobs/:id/subtitle
func getJobSubtitle(c *gin.Context) {
	snap, ok := lookupJob(c)
	if !ok {
		return
	}
	if snap.Status != model.JobStatusDone || snap.SubtitlePath == "" {
		utils.Error(c, http.StatusNotFound, "subtitle document is not available")
		return
	}

	name := strings.TrimSuffix(snap.SourceName, filepath.Ext(snap.SourceName)) + "." + snap.SubtitleFormat
	c.FileAttachment(snap.SubtitlePath, name)
}

// cancelJob handles DELETE /api/v1/jobs/:id
func cancelJob(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	if err := manager.Cancel(id); err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			utils.Error(c, http.StatusNotFound, "job not found")
		case errors.Is(err, jobs.ErrJobFinished):
			utils.Error(c, http.StatusConflict, "job already finished")
		default:
			utils.Error(c, http.StatusInternalServerError, "failed to cancel job")
		}
		return
	}
	utils.Success(c, gin.H{
		"job_id": id.String(),
		"status": "cancelling",
	})
}

func parseJobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid job id")
		return uuid.Nil, false
	}
	return id, true
}

func lookupJob(c *gin.Context) (jobs.Snapshot, bool) {
	id, ok := parseJobID(c)
	if !ok {
		return jobs.Snapshot{}, false
	}
	snap, ok := manager.Get(id)
	if !ok {
		utils.Error(c, http.StatusNotFound, "job not found")
		return jobs.Snapshot{}, false
	}
	return snap, true
}
