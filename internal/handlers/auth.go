package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"apr-manager/internal/database"
	"apr-manager/internal/middleware"
	"apr-manager/internal/models"
)

type AuthHandler struct {
	store     *database.Store
	jwtSecret string
}

func NewAuthHandler(store *database.Store, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Name        string `json:"name" binding:"required"`
	Password    string `json:"password" binding:"required"`
	CompanyCode string `json:"companyCode" binding:"required"`
	Language    string `json:"language"`
}

// Register creates an account under the company identified by its code.
// New users start as requesters unless their email was pre-registered as
// a company admin email, in which case they come in as company_admin.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Password) < 8 {
		badRequest(c, "password must be at least 8 characters")
		return
	}

	company, err := h.store.GetCompanyByCode(req.CompanyCode)
	if err != nil {
		fail(c, err)
		return
	}
	if !company.IsActive {
		badRequest(c, "company is not active")
		return
	}

	if existing, err := h.store.GetUserByEmail(email); err == nil && existing != nil {
		badRequest(c, "email is already registered")
		return
	}

	active, err := h.store.CountActiveUsers(company.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if active >= int64(company.MaxUsers) {
		badRequest(c, "company user limit reached")
		return
	}

	role := models.RoleRequester
	if match, err := h.store.FindCompanyByAdminEmail(email); err == nil && match != nil && match.ID == company.ID {
		role = models.RoleCompanyAdmin
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
		CompanyID:    &company.ID,
		Email:        email,
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

	h.store.AppendAudit(database.AuditEntry{
		CompanyID:  company.ID,
		UserID:     user.ID,
		Action:     "CREATE_USER",
		EntityType: "user",
		EntityID:   user.ID,
		Details:    map[string]any{"email": user.Email, "role": string(user.Role), "self_registered": true},
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and opens both access paths: a session
// cookie for browsers and a bearer token for API clients.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	user, err := h.store.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account is disabled"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	now := time.Now()
	_ = h.store.UpdateUser(user.ID, map[string]any{"last_signed_in": now})

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	_ = sess.Save()

	token, err := h.createToken(user)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	var company *models.Company
	if user.CompanyID != nil {
		company, _ = h.store.GetCompanyByID(*user.CompanyID)
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "company": company})
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Language *string `json:"language"`
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	updates := map[string]any{}
	if req.Name != nil && *req.Name != "" {
		updates["name"] = *req.Name
	}
	if req.Language != nil {
		if !models.ValidLanguage(models.Language(*req.Language)) {
			badRequest(c, "unknown language")
			return
		}
		updates["language"] = *req.Language
	}
	if len(updates) > 0 {
		if err := h.store.UpdateUser(user.ID, updates); err != nil {
			fail(c, err)
			return
		}
	}

	updated, err := h.store.GetUserByID(user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": updated})
}

func (h *AuthHandler) createToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
		"iss":     "apr-manager",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
