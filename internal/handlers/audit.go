package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reelgate/reelgate/internal/audit"
	"github.com/reelgate/reelgate/internal/models"
	"github.com/reelgate/reelgate/pkg/response"
)

// AuditHandler exposes read access to the login attempt ledger.
type AuditHandler struct {
	recorder *audit.Recorder
}

func NewAuditHandler(recorder *audit.Recorder) *AuditHandler {
	return &AuditHandler{recorder: recorder}
}

// GET /api/audit/logins
func (h *AuditHandler) List(c *gin.Context) {
	filters := audit.Filters{
		UserID: strings.TrimSpace(c.Query("user_id")),
		Email:  strings.TrimSpace(c.Query("email")),
		Method: models.LoginMethod(strings.TrimSpace(c.Query("method"))),
	}

	if raw := strings.TrimSpace(c.Query("successful")); raw != "" {
		successful := raw == "true" || raw == "1"
		filters.Successful = &successful
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.Since = &ts
		}
	}
	if raw := strings.TrimSpace(c.Query("until")); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.Until = &ts
		}
	}

	events, total, err := h.recorder.List(c.Request.Context(), audit.ListOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 50),
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"events": events,
		"total":  total,
	})
}
