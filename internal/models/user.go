package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleRequester    UserRole = "requester"
	RoleSafetyTech   UserRole = "safety_tech"
	RoleCompanyAdmin UserRole = "company_admin"
	RoleSuperadmin   UserRole = "superadmin"
)

type Language string

const (
	LangPtBR Language = "pt-BR"
	LangEnUS Language = "en-US"
)

// User accounts are never hard-deleted, only deactivated.
// CompanyID is nil only for superadmins, which operate globally.
type User struct {
	gorm.Model
	CompanyID    *uint      `gorm:"index" json:"companyId"`
	Email        string     `gorm:"size:320;uniqueIndex;not null" json:"email"`
	Name         string     `gorm:"size:255" json:"name"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         UserRole   `gorm:"type:varchar(20);not null;default:requester" json:"role"`
	Language     Language   `gorm:"type:varchar(8);not null;default:pt-BR" json:"language"`
	IsActive     bool       `gorm:"not null;default:true" json:"isActive"`
	LastSignedIn *time.Time `json:"lastSignedIn"`
}

func ValidRole(r UserRole) bool {
	switch r {
	case RoleRequester, RoleSafetyTech, RoleCompanyAdmin, RoleSuperadmin:
		return true
	}
	return false
}

func ValidLanguage(l Language) bool {
	return l == LangPtBR || l == LangEnUS
}
