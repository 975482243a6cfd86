package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"NewsBroadcaster/internal/distiller"
	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
	"NewsBroadcaster/internal/usecase"
)

// Audience picks the recipients. RecipientID wins over Recipients; both empty
// means every active recipient.
type Audience struct {
	RecipientID int64   `json:"recipientId"`
	Recipients  []int64 `json:"recipients"`
	Gateway     string  `json:"gateway"`
}

type BroadcastRequest struct {
	ArticleID int64 `json:"articleId" binding:"required"`
	Audience
}

type AnnouncementRequest struct {
	Message string `json:"message" binding:"required"`
	Audience
}

func (a Audience) selector() domain.RecipientSelector {
	switch {
	case a.RecipientID > 0:
		return domain.RecipientByID(a.RecipientID)
	case len(a.Recipients) > 0:
		return domain.RecipientsByIDs(a.Recipients...)
	default:
		return domain.AllRecipients()
	}
}

func (h *handlers) kind(name string) (gateway.Kind, error) {
	if strings.TrimSpace(name) == "" {
		if h.deps.DefaultGateway == "" {
			return "", errors.New("no gateway given and no default configured")
		}
		return h.deps.DefaultGateway, nil
	}
	return gateway.ParseKind(name)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) createBroadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "articleId is required"})
		return
	}
	kind, err := h.kind(req.Gateway)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.ready(c) {
		return
	}

	selector := req.selector()
	id := h.deps.Jobs.Submit(fmt.Sprintf("article %d via %s", req.ArticleID, kind), func(ctx context.Context, progress usecase.Progress) (usecase.Report, error) {
		return h.deps.Pipeline.BroadcastArticle(ctx, req.ArticleID, selector, kind, progress)
	})
	c.JSON(http.StatusAccepted, gin.H{"jobId": id})
}

func (h *handlers) createAnnouncement(c *gin.Context) {
	var req AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	message := strings.TrimSpace(req.Message)
	if n := utf8.RuneCountInString(message); n == 0 || n > distiller.SMSLimit {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": fmt.Sprintf("message must be 1 to %d characters, got %d", distiller.SMSLimit, n),
		})
		return
	}
	kind, err := h.kind(req.Gateway)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.ready(c) {
		return
	}

	selector := req.selector()
	id := h.deps.Jobs.Submit(fmt.Sprintf("announcement via %s", kind), func(ctx context.Context, progress usecase.Progress) (usecase.Report, error) {
		return h.deps.Pipeline.Announce(ctx, message, selector, kind, progress)
	})
	c.JSON(http.StatusAccepted, gin.H{"jobId": id})
}

func (h *handlers) listJobs(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": h.deps.Jobs.List()})
}

func (h *handlers) getJob(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	status, err := h.deps.Jobs.Status(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *handlers) cancelJob(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	if err := h.deps.Jobs.Cancel(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": c.Param("id"), "cancelled": true})
}

func (h *handlers) stats(c *gin.Context) {
	if h.deps.Stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "delivery log is not configured"})
		return
	}
	stats, err := h.deps.Stats.DeliveryStats(c.Request.Context())
	if err != nil {
		if h.deps.Logger != nil {
			h.deps.Logger.Error("delivery stats failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delivery stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":            stats.Total,
		"sent":             stats.Sent,
		"failed":           stats.Failed,
		"uniqueRecipients": stats.UniqueRecipients,
		"uniqueArticles":   stats.UniqueArticles,
		"successRate":      stats.SuccessRate(),
	})
}

func (h *handlers) ready(c *gin.Context) bool {
	if h.deps.Jobs == nil || h.deps.Pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "broadcasting is not configured"})
		return false
	}
	return true
}
