package models

import "gorm.io/gorm"

// Company is the tenant boundary. Every APR and every non-superadmin
// user belongs to exactly one company.
type Company struct {
	gorm.Model
	Code     string `gorm:"size:64;uniqueIndex;not null" json:"code"` // access code used at registration
	Name     string `gorm:"size:255;not null" json:"name"`
	MaxUsers int    `gorm:"not null;default:10" json:"maxUsers"`
	IsActive bool   `gorm:"not null;default:true" json:"isActive"`
}

// CompanyAdminEmail pre-assigns company_admin to an email address.
// A user registering with a listed email joins that company as admin.
type CompanyAdminEmail struct {
	gorm.Model
	CompanyID uint   `gorm:"index;not null" json:"companyId"`
	Email     string `gorm:"size:320;index;not null" json:"email"`
	CreatedBy uint   `gorm:"not null" json:"createdBy"` // superadmin who added it

	Company Company `json:"-"`
}
