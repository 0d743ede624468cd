package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"apr-manager/internal/database"
	"apr-manager/internal/middleware"
	"apr-manager/internal/models"
)

type CompanyHandler struct {
	store *database.Store
}

func NewCompanyHandler(store *database.Store) *CompanyHandler {
	return &CompanyHandler{store: store}
}

func (h *CompanyHandler) auditSystem(c *gin.Context, action string, entityID uint, details map[string]any) {
	user := middleware.CurrentUser(c)
	h.store.AppendAudit(database.AuditEntry{
		CompanyID:  0,
		UserID:     user.ID,
		Action:     action,
		EntityType: "company",
		EntityID:   entityID,
		Details:    details,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
}

type createCompanyRequest struct {
	Code     string `json:"code" binding:"required,min=3,max=64"`
	Name     string `json:"name" binding:"required,max=255"`
	MaxUsers int    `json:"maxUsers"`
}

func (h *CompanyHandler) Create(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if req.MaxUsers <= 0 {
		req.MaxUsers = 10
	}

	company := &models.Company{
		Code:     strings.TrimSpace(req.Code),
		Name:     req.Name,
		MaxUsers: req.MaxUsers,
		IsActive: true,
	}
	if err := h.store.CreateCompany(company); err != nil {
		fail(c, err)
		return
	}

	h.auditSystem(c, "CREATE_COMPANY", company.ID, map[string]any{"code": company.Code, "name": company.Name})
	c.JSON(http.StatusCreated, gin.H{"company": company})
}

func (h *CompanyHandler) List(c *gin.Context) {
	companies, err := h.store.ListCompanies()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

type updateCompanyRequest struct {
	Name     *string `json:"name"`
	MaxUsers *int    `json:"maxUsers"`
	IsActive *bool   `json:"isActive"`
}

func (h *CompanyHandler) Update(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid company id")
		return
	}

	var req updateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	updates := map[string]any{}
	if req.Name != nil && *req.Name != "" {
		updates["name"] = *req.Name
	}
	if req.MaxUsers != nil && *req.MaxUsers > 0 {
		updates["max_users"] = *req.MaxUsers
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := h.store.UpdateCompany(id, updates); err != nil {
			fail(c, err)
			return
		}
	}

	company, err := h.store.GetCompanyByID(id)
	if err != nil {
		fail(c, err)
		return
	}

	h.auditSystem(c, "UPDATE_COMPANY", id, updates)
	c.JSON(http.StatusOK, gin.H{"company": company})
}

// GetByCode is public: the registration form uses it to validate the
// company code before signup. It exposes nothing beyond name and status.
func (h *CompanyHandler) GetByCode(c *gin.Context) {
	company, err := h.store.GetCompanyByCode(c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"company": gin.H{"code": company.Code, "name": company.Name, "isActive": company.IsActive},
	})
}

type addAdminEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *CompanyHandler) AddAdminEmail(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid company id")
		return
	}
	var req addAdminEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if _, err := h.store.GetCompanyByID(id); err != nil {
		fail(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	entry := &models.CompanyAdminEmail{
		CompanyID: id,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		CreatedBy: user.ID,
	}
	if err := h.store.AddCompanyAdminEmail(entry); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"adminEmail": entry})
}

func (h *CompanyHandler) ListAdminEmails(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid company id")
		return
	}
	emails, err := h.store.ListCompanyAdminEmails(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"adminEmails": emails})
}

func (h *CompanyHandler) RemoveAdminEmail(c *gin.Context) {
	emailID, err := strconv.ParseUint(c.Param("emailId"), 10, 32)
	if err != nil {
		badRequest(c, "invalid admin email id")
		return
	}
	if err := h.store.RemoveCompanyAdminEmail(uint(emailID)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func idParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}
