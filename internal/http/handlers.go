package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arturoibarra/ovh-fleet/internal/models"
	"github.com/arturoibarra/ovh-fleet/internal/store"
)

func (h *Handler) listQueue(c *gin.Context) {
	tasks, err := h.Queue.List(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	tasks = filterByScope(tasks, c)
	c.JSON(http.StatusOK, tasks)
}

func filterByScope(tasks []models.QueueTask, c *gin.Context) []models.QueueTask {
	if c.Query("scope") == "all" {
		return tasks
	}
	accountID, _ := c.Get("accountID")
	out := make([]models.QueueTask, 0, len(tasks))
	for _, t := range tasks {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

func (h *Handler) listQueuePaged(c *gin.Context) {
	tasks, err := h.Queue.List(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}

	status := c.Query("status")
	if status != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "pageSize", 20)
	start := (page - 1) * pageSize
	if start < 0 || start > len(tasks) {
		start = len(tasks)
	}
	end := start + pageSize
	if end > len(tasks) {
		end = len(tasks)
	}

	c.JSON(http.StatusOK, gin.H{
		"items":    tasks[start:end],
		"page":     page,
		"pageSize": pageSize,
		"total":    len(tasks),
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	val := c.Query(key)
	if val == "" {
		return def
	}
	n := 0
	for _, r := range val {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return def
	}
	return n
}

func (h *Handler) createQueueTask(c *gin.Context) {
	var req CreateQueueTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, err, "invalid_request")
		return
	}

	accountID := req.AccountID
	if accountID == "" {
		if v, ok := c.Get("accountID"); ok {
			accountID = v.(string)
		}
	}

	now := time.Now()
	task := models.QueueTask{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		PlanCode:      req.PlanCode,
		Datacenters:   req.Datacenters,
		Options:       req.Options,
		Quantity:      req.Quantity,
		RetryInterval: req.RetryInterval,
		AutoPay:       req.AutoPay,
		Status:        models.TaskStatusRunning,
		NextAttemptAt: now.Unix(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Queue.Create(c.Request.Context(), task); err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) updateQueueTask(c *gin.Context) {
	id := c.Param("id")
	var req UpdateQueueTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, err, "invalid_request")
		return
	}

	err := h.Queue.WithTask(c.Request.Context(), id, func(t models.QueueTask) (models.QueueTask, error) {
		if t.Status == models.TaskStatusRunning && t.NextAttemptAt <= time.Now().Unix() {
			return t, errTaskBusy
		}
		t.PlanCode = req.PlanCode
		t.Datacenters = req.Datacenters
		t.Options = req.Options
		t.Quantity = req.Quantity
		t.RetryInterval = req.RetryInterval
		t.AutoPay = req.AutoPay
		t.UpdatedAt = time.Now()
		return t, nil
	})
	if err == store.ErrNotFound {
		h.fail(c, http.StatusNotFound, err, "not_found")
		return
	}
	if err == errTaskBusy {
		h.fail(c, http.StatusConflict, err, "task_busy")
		return
	}
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}

	task, err := h.Queue.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) updateQueueTaskStatus(c *gin.Context) {
	id := c.Param("id")
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, err, "invalid_request")
		return
	}

	err := h.Queue.WithTask(c.Request.Context(), id, func(t models.QueueTask) (models.QueueTask, error) {
		if t.Terminal() {
			return t, errInvalidTransition
		}
		t.Status = req.Status
		t.UpdatedAt = time.Now()
		return t, nil
	})
	if err == store.ErrNotFound {
		h.fail(c, http.StatusNotFound, err, "not_found")
		return
	}
	if err == errInvalidTransition {
		h.fail(c, http.StatusConflict, err, "invalid_transition")
		return
	}
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}

	task, _ := h.Queue.Get(c.Request.Context(), id)
	c.JSON(http.StatusOK, task)
}

func (h *Handler) restartQueueTask(c *gin.Context) {
	id := c.Param("id")
	err := h.Queue.WithTask(c.Request.Context(), id, func(t models.QueueTask) (models.QueueTask, error) {
		t.Status = models.TaskStatusRunning
		t.Purchased = 0
		t.RetryCount = 0
		t.FailureCount = 0
		t.BackoffSeconds = 0
		t.ErrorMessage = ""
		t.NextAttemptAt = time.Now().Unix()
		t.UpdatedAt = time.Now()
		return t, nil
	})
	if err == store.ErrNotFound {
		h.fail(c, http.StatusNotFound, err, "not_found")
		return
	}
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	task, _ := h.Queue.Get(c.Request.Context(), id)
	c.JSON(http.StatusOK, task)
}

func (h *Handler) deleteQueueTask(c *gin.Context) {
	id := c.Param("id")
	if err := h.Queue.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) clearQueue(c *gin.Context) {
	accountID := ""
	if c.Query("scope") != "all" {
		if v, ok := c.Get("accountID"); ok {
			accountID = v.(string)
		}
	}
	removed, err := h.Queue.Clear(c.Request.Context(), accountID)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *Handler) listHistory(c *gin.Context) {
	entries, err := h.History.List(c.Request.Context(), c.Query("taskId"))
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	if c.Query("scope") != "all" {
		if accountID, ok := c.Get("accountID"); ok {
			filtered := entries[:0]
			for _, e := range entries {
				if e.AccountID == accountID {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) clearHistory(c *gin.Context) {
	accountID := ""
	if c.Query("scope") != "all" {
		if v, ok := c.Get("accountID"); ok {
			accountID = v.(string)
		}
	}
	removed, err := h.History.Clear(c.Request.Context(), accountID)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *Handler) stats(c *gin.Context) {
	tasks, err := h.Queue.List(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	counts := map[string]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}
	c.JSON(http.StatusOK, gin.H{"byStatus": counts, "total": len(tasks)})
}

func (h *Handler) listSubscriptions(c *gin.Context) {
	subs, err := h.Subscriptions.List(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (h *Handler) createSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, err, "invalid_request")
		return
	}
	sub := models.Subscription{
		ID:                uuid.NewString(),
		AccountID:         req.AccountID,
		PlanCode:          req.PlanCode,
		OVHSubsidiary:     req.OVHSubsidiary,
		Datacenters:       req.Datacenters,
		Options:           req.Options,
		MonitorLinux:      req.MonitorLinux,
		MonitorWindows:    req.MonitorWindows,
		NotifyAvailable:   req.NotifyAvailable,
		NotifyUnavailable: req.NotifyUnavailable,
		LastStatus:        map[string]models.DatacenterStatus{},
		CreatedAt:         time.Now(),
	}
	if err := h.Subscriptions.Create(c.Request.Context(), sub); err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) deleteSubscription(c *gin.Context) {
	id := c.Param("id")
	if err := h.Subscriptions.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, http.StatusInternalServerError, err, "store_error")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) monitorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Monitor.Status(c.Request.Context()))
}

func (h *Handler) fail(c *gin.Context, status int, err error, code string) {
	logger := LoggerFrom(c)
	logger.Warn().Err(err).Str("code", code).Msg("request failed")
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
