package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog rows are append-only; nothing in the codebase updates or
// deletes them. CompanyID 0 marks system-level actions (company CRUD).
type AuditLog struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	CompanyID uint `gorm:"index" json:"companyId"`
	UserID    uint `json:"userId"`
	User      User `json:"-"`

	Action     string         `gorm:"size:128;not null" json:"action"`     // "CREATE_APR", "REJECT_APR", ...
	EntityType string         `gorm:"size:64;not null" json:"entityType"`  // "apr", "user", "company"
	EntityID   uint           `json:"entityId"`
	Details    datatypes.JSON `json:"details"` // changed fields payload
	IPAddress  string         `gorm:"size:45" json:"ipAddress"`
	UserAgent  string         `gorm:"type:text" json:"userAgent"`
}
