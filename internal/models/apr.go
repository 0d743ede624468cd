package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AprStatus string

const (
	StatusDraft           AprStatus = "draft"
	StatusPendingApproval AprStatus = "pending_approval"
	StatusApproved        AprStatus = "approved"
	StatusRejected        AprStatus = "rejected"
)

func ValidAprStatus(s AprStatus) bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Apr is the risk-assessment document. CompanyID is immutable after
// creation; every lookup is scoped by (id, company_id).
type Apr struct {
	gorm.Model
	CompanyID  uint  `gorm:"index;not null" json:"companyId"`
	CreatedBy  uint  `gorm:"not null" json:"createdBy"`
	ApprovedBy *uint `json:"approvedBy"`

	Title               string    `gorm:"size:255;not null" json:"title"`
	Description         string    `gorm:"type:text;not null" json:"description"`
	Location            string    `gorm:"size:255" json:"location"`
	ActivityDescription string    `gorm:"type:text;not null" json:"activityDescription"`
	Status              AprStatus `gorm:"type:varchar(20);not null;default:draft" json:"status"`

	// TeamMembers and Tools are JSON string lists; EmergencyContacts is
	// a JSON list of EmergencyContact. All three are optional.
	TeamMembers       datatypes.JSON `json:"teamMembers"`
	Tools             datatypes.JSON `json:"tools"`
	EmergencyContacts datatypes.JSON `json:"emergencyContacts"`

	// AIAnalysis holds the validated analysis.Result as JSON. It is only
	// ever written whole, never patched field by field.
	AIAnalysis       datatypes.JSON `json:"aiAnalysis"`
	ApprovalComments string         `gorm:"type:text" json:"approvalComments"`
	ApprovedAt       *time.Time     `json:"approvedAt"`
}

type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role,omitempty"`
}

// TeamMemberList decodes TeamMembers; malformed or absent data reads as
// an empty list.
func (a *Apr) TeamMemberList() []string {
	return decodeStringList(a.TeamMembers)
}

func (a *Apr) ToolList() []string {
	return decodeStringList(a.Tools)
}

func (a *Apr) EmergencyContactList() []EmergencyContact {
	if len(a.EmergencyContacts) == 0 {
		return nil
	}
	var out []EmergencyContact
	if err := json.Unmarshal(a.EmergencyContacts, &out); err != nil {
		return nil
	}
	return out
}

func decodeStringList(blob datatypes.JSON) []string {
	if len(blob) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(blob, &out); err != nil {
		return nil
	}
	return out
}

// AprImage is an ordered workplace photo. Position drives both display
// order and the sequence sent to the reasoning service.
type AprImage struct {
	gorm.Model
	AprID    uint   `gorm:"index;not null" json:"aprId"`
	ImageURL string `gorm:"size:512;not null" json:"imageUrl"`
	ImageKey string `gorm:"size:512;not null" json:"imageKey"`
	Caption  string `gorm:"type:text" json:"caption"`
	Position int    `gorm:"not null" json:"order"`
}

type AnswerType string

const (
	AnswerBoolean        AnswerType = "boolean"
	AnswerText           AnswerType = "text"
	AnswerMultipleChoice AnswerType = "multiple_choice"
)

// AprResponse is one structured questionnaire answer. The full set for
// an APR is replaced atomically on resubmission.
type AprResponse struct {
	gorm.Model
	AprID        uint       `gorm:"index;not null" json:"aprId"`
	QuestionKey  string     `gorm:"size:128;not null" json:"questionKey"`
	QuestionText string     `gorm:"type:text;not null" json:"questionText"`
	Answer       string     `gorm:"type:text;not null" json:"answer"`
	AnswerType   AnswerType `gorm:"type:varchar(20);not null" json:"answerType"`
}

type SignatureType string

const (
	SignatureRequester  SignatureType = "requester"
	SignatureSafetyTech SignatureType = "safety_tech"
	SignatureSupervisor SignatureType = "supervisor"
)

type DigitalSignature struct {
	gorm.Model
	AprID         uint          `gorm:"index;not null" json:"aprId"`
	UserID        uint          `gorm:"not null" json:"userId"`
	SignatureType SignatureType `gorm:"type:varchar(20);not null" json:"signatureType"`
	SignatureData string        `gorm:"type:text;not null" json:"signatureData"`
	SignedAt      time.Time     `json:"signedAt"`
}
