package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"apr-manager/internal/database"
	"apr-manager/internal/middleware"
	"apr-manager/internal/models"
)

type AuditHandler struct {
	store *database.Store
}

func NewAuditHandler(store *database.Store) *AuditHandler {
	return &AuditHandler{store: store}
}

// List returns the company's audit trail, newest first. Superadmins
// without a company see system-level entries instead.
func (h *AuditHandler) List(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	companyID := uint(0)
	if actor.CompanyID != nil {
		companyID = *actor.CompanyID
	} else if actor.Role != models.RoleSuperadmin {
		badRequest(c, "user is not attached to a company")
		return
	}

	limit := 200
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = n
	}

	logs, err := h.store.ListAuditLogs(companyID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
