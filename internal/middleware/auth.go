package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"apr-manager/internal/database"
	"apr-manager/internal/models"
	"apr-manager/internal/permissions"
)

const userKey = "CurrentUser"

// InjectUser resolves the authenticated user from the session cookie or,
// failing that, a JWT bearer token, and stores it on the context. Missing
// or invalid credentials are not an error here; RequireUser decides.
func InjectUser(store *database.Store, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid, ok := sessionUserID(c); ok {
			attachUser(c, store, uid)
		} else if uid, ok := bearerUserID(c, jwtSecret); ok {
			attachUser(c, store, uid)
		}
		c.Next()
	}
}

func sessionUserID(c *gin.Context) (uint, bool) {
	sess := sessions.Default(c)
	uidRaw := sess.Get("user_id")
	if uidRaw == nil {
		return 0, false
	}
	uid, ok := uidRaw.(uint)
	return uid, ok && uid > 0
}

func bearerUserID(c *gin.Context, secret string) (uint, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, false
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	uid, ok := claims["user_id"].(float64)
	return uint(uid), ok && uid > 0
}

func attachUser(c *gin.Context, store *database.Store, uid uint) {
	user, err := store.GetUserByID(uid)
	if err != nil || !user.IsActive {
		return
	}
	c.Set(userKey, user)
}

// CurrentUser returns the user attached by InjectUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	val, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireCapability gates a route group on the permission policy.
func RequireCapability(cap permissions.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if err := permissions.Authorize(user, cap); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}
