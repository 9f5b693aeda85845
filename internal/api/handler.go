// Package api exposes the processing service over HTTP.
package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kociii/reData/internal/db"
	"github.com/kociii/reData/internal/events"
	"github.com/kociii/reData/internal/model"
	"github.com/kociii/reData/internal/processing"
	apperrors "github.com/kociii/reData/pkg/errors"
)

type Handler struct {
	orch   *processing.Orchestrator
	repo   db.Repository
	broker *events.Broker
	log    zerolog.Logger
}

func NewHandler(orch *processing.Orchestrator, repo db.Repository, broker *events.Broker, log zerolog.Logger) *Handler {
	return &Handler{
		orch:   orch,
		repo:   repo,
		broker: broker,
		log:    log.With().Str("component", "api").Logger(),
	}
}

func (h *Handler) Start(c *gin.Context) {
	var req model.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.orch.Start(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handler) Pause(c *gin.Context) {
	if err := h.orch.Pause(c.Request.Context(), c.Param("task_id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

func (h *Handler) Resume(c *gin.Context) {
	if err := h.orch.Resume(c.Request.Context(), c.Param("task_id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processing"})
}

func (h *Handler) Cancel(c *gin.Context) {
	if err := h.orch.Cancel(c.Request.Context(), c.Param("task_id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelling"})
}

func (h *Handler) Reset(c *gin.Context) {
	deleteRecords := c.Query("delete_records") == "true"
	if err := h.orch.Reset(c.Request.Context(), c.Param("task_id"), deleteRecords); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pending", "records_deleted": deleteRecords})
}

func (h *Handler) Rollback(c *gin.Context) {
	var req model.RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orch.Rollback(c.Request.Context(), req.ProjectID, req.BatchLabel)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetTask(c *gin.Context) {
	task, err := h.repo.GetTask(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) ListTasks(c *gin.Context) {
	var projectID int64
	if raw := c.Query("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
			return
		}
		projectID = id
	}

	tasks, err := h.repo.ListTasks(c.Request.Context(), projectID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *Handler) GetProgress(c *gin.Context) {
	tree, err := h.orch.Progress(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (h *Handler) ListBatches(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("project_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}

	batches, err := h.repo.ListBatches(c.Request.Context(), projectID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

// Events streams the task's progress notifications as server-sent
// events until the client disconnects or the task reaches a terminal
// event.
func (h *Handler) Events(c *gin.Context) {
	taskID := c.Param("task_id")
	if _, err := h.repo.GetTask(c.Request.Context(), taskID); err != nil {
		h.respondError(c, err)
		return
	}

	ch, cancel := h.broker.Subscribe(taskID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Event, ev)
			switch ev.Event {
			case model.EventCompleted, model.EventCancelled:
				return false
			}
			return true
		}
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrProjectNotFound),
		errors.Is(err, apperrors.ErrTaskNotFound),
		errors.Is(err, apperrors.ErrBatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNoFields),
		errors.Is(err, apperrors.ErrNoAIConfig):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
