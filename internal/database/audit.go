package database

import (
	"encoding/json"
	"log"

	"apr-manager/internal/models"
)

// AuditEntry captures who did what to which entity, plus request
// metadata. Details is an arbitrary changed-fields payload.
type AuditEntry struct {
	CompanyID  uint // 0 for system-level actions
	UserID     uint
	Action     string
	EntityType string
	EntityID   uint
	Details    map[string]any
	IPAddress  string
	UserAgent  string
}

// AppendAudit writes one audit row. Audit is best-effort: a failure is
// logged but never fails the parent operation.
func (s *Store) AppendAudit(e AuditEntry) {
	record := models.AuditLog{
		CompanyID:  e.CompanyID,
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
	}
	if e.Details != nil {
		raw, err := json.Marshal(e.Details)
		if err == nil {
			record.Details = raw
		}
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("failed to write audit log (%s %s/%d): %v", e.Action, e.EntityType, e.EntityID, err)
	}
}

func (s *Store) ListAuditLogs(companyID uint, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var logs []models.AuditLog
	err := s.db.Where("company_id = ?", companyID).
		Order("created_at desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
