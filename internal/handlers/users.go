package handlers

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"apr-manager/internal/apperr"
	"apr-manager/internal/database"
	"apr-manager/internal/middleware"
	"apr-manager/internal/models"
)

type UserHandler struct {
	store *database.Store
}

func NewUserHandler(store *database.Store) *UserHandler {
	return &UserHandler{store: store}
}

func (h *UserHandler) audit(c *gin.Context, action string, entityID uint, details map[string]any) {
	actor := middleware.CurrentUser(c)
	companyID := uint(0)
	if actor.CompanyID != nil {
		companyID = *actor.CompanyID
	}
	h.store.AppendAudit(database.AuditEntry{
		CompanyID:  companyID,
		UserID:     actor.ID,
		Action:     action,
		EntityType: "user",
		EntityID:   entityID,
		Details:    details,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
}

func (h *UserHandler) List(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor.CompanyID == nil {
		badRequest(c, "user is not attached to a company")
		return
	}
	users, err := h.store.ListCompanyUsers(*actor.CompanyID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
	Language string `json:"language"`
}

// Create adds a user to the admin's own company, bounded by the
// company's seat limit.
func (h *UserHandler) Create(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor.CompanyID == nil {
		badRequest(c, "user is not attached to a company")
		return
	}

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	role := models.UserRole(req.Role)
	if !models.ValidRole(role) || role == models.RoleSuperadmin {
		badRequest(c, "unknown role")
		return
	}

	company, err := h.store.GetCompanyByID(*actor.CompanyID)
	if err != nil {
		fail(c, err)
		return
	}
	active, err := h.store.CountActiveUsers(company.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if active >= int64(company.MaxUsers) {
		badRequest(c, fmt.Sprintf("user limit reached (%d/%d)", active, company.MaxUsers))
		return
	}

	lang := models.Language(req.Language)
	if !models.ValidLanguage(lang) {
		lang = models.LangPtBR
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, err)
		return
	}

	user := &models.User{
		CompanyID:    actor.CompanyID,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         role,
		Language:     lang,
		IsActive:     true,
	}
	if err := h.store.CreateUser(user); err != nil {
		fail(c, err)
		return
	}

	h.audit(c, "CREATE_USER", user.ID, map[string]any{"email": user.Email, "role": string(user.Role)})
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type updateUserRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
	Language *string `json:"language"`
}

// Update changes role, status or language of a user. Company admins can
// only touch users of their own company, and nobody edits a superadmin.
func (h *UserHandler) Update(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	target, err := h.store.GetUserByID(id)
	if err != nil {
		fail(c, err)
		return
	}
	if target.Role == models.RoleSuperadmin {
		fail(c, apperr.Forbidden("superadmin accounts cannot be modified"))
		return
	}
	if actor.Role != models.RoleSuperadmin {
		if actor.CompanyID == nil || target.CompanyID == nil || *actor.CompanyID != *target.CompanyID {
			fail(c, apperr.Forbidden("cannot modify users of another company"))
			return
		}
	}

	updates := map[string]any{}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		if !models.ValidRole(role) || role == models.RoleSuperadmin {
			badRequest(c, "unknown role")
			return
		}
		updates["role"] = string(role)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Language != nil {
		if !models.ValidLanguage(models.Language(*req.Language)) {
			badRequest(c, "unknown language")
			return
		}
		updates["language"] = *req.Language
	}
	if len(updates) > 0 {
		if err := h.store.UpdateUser(id, updates); err != nil {
			fail(c, err)
			return
		}
	}

	updated, err := h.store.GetUserByID(id)
	if err != nil {
		fail(c, err)
		return
	}

	h.audit(c, "UPDATE_USER", id, updates)
	c.JSON(http.StatusOK, gin.H{"user": updated})
}

// Stats reports seat usage for the admin's company.
func (h *UserHandler) Stats(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor.CompanyID == nil {
		badRequest(c, "user is not attached to a company")
		return
	}

	company, err := h.store.GetCompanyByID(*actor.CompanyID)
	if err != nil {
		fail(c, err)
		return
	}
	active, err := h.store.CountActiveUsers(company.ID)
	if err != nil {
		fail(c, err)
		return
	}
	users, err := h.store.ListCompanyUsers(company.ID)
	if err != nil {
		fail(c, err)
		return
	}

	percent := 0
	if company.MaxUsers > 0 {
		percent = int(math.Round(float64(active) / float64(company.MaxUsers) * 100))
	}
	c.JSON(http.StatusOK, gin.H{
		"activeUsers":    active,
		"totalUsers":     len(users),
		"userLimit":      company.MaxUsers,
		"percentageUsed": percent,
	})
}
