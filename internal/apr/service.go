// Package apr implements the risk-assessment lifecycle: drafting,
// questionnaire responses, image attachments, AI analysis, submission,
// review and report export. All reads and writes are scoped to the
// actor's company.
package apr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"apr-manager/internal/analysis"
	"apr-manager/internal/apperr"
	"apr-manager/internal/database"
	"apr-manager/internal/models"
	"apr-manager/internal/permissions"
	"apr-manager/internal/report"
	"apr-manager/internal/storage"
)

// Analyzer is the reasoning orchestrator as the service sees it.
type Analyzer interface {
	Analyze(ctx context.Context, apr *models.Apr, responses []models.AprResponse, images []models.AprImage, lang models.Language) (*analysis.Result, error)
	DescribeImages(ctx context.Context, images []models.AprImage, lang models.Language) []string
}

// Renderer turns the assembled document model into export bytes.
type Renderer interface {
	Render(doc *report.Document) ([]byte, error)
}

// Actor carries the authenticated user plus request metadata for the
// audit trail.
type Actor struct {
	User      *models.User
	IP        string
	UserAgent string
}

type Service struct {
	store    *database.Store
	objects  storage.ObjectStore
	analyzer Analyzer
	renderer Renderer
}

func NewService(store *database.Store, objects storage.ObjectStore, analyzer Analyzer, renderer Renderer) *Service {
	return &Service{store: store, objects: objects, analyzer: analyzer, renderer: renderer}
}

func (s *Service) audit(act Actor, action string, entityID uint, details map[string]any) {
	s.store.AppendAudit(database.AuditEntry{
		CompanyID:  companyOf(act.User),
		UserID:     act.User.ID,
		Action:     action,
		EntityType: "apr",
		EntityID:   entityID,
		Details:    details,
		IPAddress:  act.IP,
		UserAgent:  act.UserAgent,
	})
}

func companyOf(u *models.User) uint {
	if u.CompanyID == nil {
		return 0
	}
	return *u.CompanyID
}

// requireCompany gates every APR operation: even a superadmin needs a
// tenant to act within.
func requireCompany(u *models.User) (uint, error) {
	if u.CompanyID == nil {
		return 0, apperr.BadRequest("user is not attached to a company")
	}
	return *u.CompanyID, nil
}

type CreateInput struct {
	Title               string                    `json:"title" binding:"required"`
	Description         string                    `json:"description"`
	Location            string                    `json:"location"`
	ActivityDescription string                    `json:"activityDescription" binding:"required"`
	TeamMembers         []string                  `json:"teamMembers"`
	Tools               []string                  `json:"tools"`
	EmergencyContacts   []models.EmergencyContact `json:"emergencyContacts"`
}

func (s *Service) Create(act Actor, in CreateInput) (*models.Apr, error) {
	if err := permissions.Authorize(act.User, permissions.CapCreateApr); err != nil {
		return nil, err
	}
	if in.Title == "" || in.ActivityDescription == "" {
		return nil, apperr.BadRequest("title and activity description are required")
	}

	a := &models.Apr{
		CompanyID:           *act.User.CompanyID,
		CreatedBy:           act.User.ID,
		Title:               in.Title,
		Description:         in.Description,
		Location:            in.Location,
		ActivityDescription: in.ActivityDescription,
		Status:              models.StatusDraft,
	}
	if len(in.TeamMembers) > 0 {
		a.TeamMembers = mustJSON(in.TeamMembers)
	}
	if len(in.Tools) > 0 {
		a.Tools = mustJSON(in.Tools)
	}
	if len(in.EmergencyContacts) > 0 {
		a.EmergencyContacts = mustJSON(in.EmergencyContacts)
	}
	if err := s.store.CreateApr(a); err != nil {
		return nil, err
	}

	s.audit(act, "CREATE_APR", a.ID, map[string]any{"title": a.Title})
	return a, nil
}

// Detail bundles an APR with its attachments for a single fetch.
type Detail struct {
	Apr        *models.Apr               `json:"apr"`
	Images     []models.AprImage         `json:"images"`
	Responses  []models.AprResponse      `json:"responses"`
	Signatures []models.DigitalSignature `json:"signatures"`
}

func (s *Service) Get(act Actor, id uint) (*Detail, error) {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return nil, err
	}
	a, err := s.store.GetApr(id, companyID)
	if err != nil {
		return nil, err
	}

	images, err := s.store.ListAprImages(id)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListAprResponses(id)
	if err != nil {
		return nil, err
	}
	signatures, err := s.store.ListSignatures(id)
	if err != nil {
		return nil, err
	}
	return &Detail{Apr: a, Images: images, Responses: responses, Signatures: signatures}, nil
}

func (s *Service) List(act Actor, f database.AprFilter) ([]models.Apr, error) {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return nil, err
	}
	if f.Status != "" && !models.ValidAprStatus(f.Status) {
		return nil, apperr.BadRequest("unknown status %q", f.Status)
	}
	return s.store.ListAprs(companyID, f)
}

type UpdateInput struct {
	Title               *string                    `json:"title"`
	Description         *string                    `json:"description"`
	Location            *string                    `json:"location"`
	ActivityDescription *string                    `json:"activityDescription"`
	TeamMembers         *[]string                  `json:"teamMembers"`
	Tools               *[]string                  `json:"tools"`
	EmergencyContacts   *[]models.EmergencyContact `json:"emergencyContacts"`
}

// mustJSON encodes values that came from a decoded request body, so the
// round trip cannot fail.
func mustJSON(v any) datatypes.JSON {
	blob, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return blob
}

// Update edits a draft or rejected APR. A creator may edit their own;
// company admins may edit any APR in the company regardless of status.
// Editing a rejected APR puts it back in draft so it can be resubmitted.
func (s *Service) Update(act Actor, id uint, in UpdateInput) (*models.Apr, error) {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return nil, err
	}
	a, err := s.store.GetApr(id, companyID)
	if err != nil {
		return nil, err
	}

	editable := a.Status == models.StatusDraft || a.Status == models.StatusRejected
	adminOverride := permissions.Rank(act.User.Role) >= permissions.Rank(models.RoleCompanyAdmin)
	if !editable && !adminOverride {
		return nil, apperr.Forbidden("only draft or rejected APRs can be edited")
	}
	if a.CreatedBy != act.User.ID && !adminOverride {
		return nil, apperr.Forbidden("only the creator can edit this APR")
	}

	updates := map[string]any{}
	if in.Title != nil {
		if *in.Title == "" {
			return nil, apperr.BadRequest("title cannot be empty")
		}
		updates["title"] = *in.Title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Location != nil {
		updates["location"] = *in.Location
	}
	if in.ActivityDescription != nil {
		if *in.ActivityDescription == "" {
			return nil, apperr.BadRequest("activity description cannot be empty")
		}
		updates["activity_description"] = *in.ActivityDescription
	}
	if in.TeamMembers != nil {
		updates["team_members"] = mustJSON(*in.TeamMembers)
	}
	if in.Tools != nil {
		updates["tools"] = mustJSON(*in.Tools)
	}
	if in.EmergencyContacts != nil {
		updates["emergency_contacts"] = mustJSON(*in.EmergencyContacts)
	}
	if len(updates) == 0 {
		return a, nil
	}
	if a.Status == models.StatusRejected {
		updates["status"] = string(models.StatusDraft)
	}

	if err := s.store.UpdateApr(id, companyID, updates); err != nil {
		return nil, err
	}
	s.audit(act, "UPDATE_APR", id, auditFields(updates))
	return s.store.GetApr(id, companyID)
}

func auditFields(updates map[string]any) map[string]any {
	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}
	return map[string]any{"fields": fields}
}

func (s *Service) SubmitForApproval(act Actor, id uint) (*models.Apr, error) {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return nil, err
	}
	a, err := s.store.GetApr(id, companyID)
	if err != nil {
		return nil, err
	}
	if a.CreatedBy != act.User.ID {
		return nil, apperr.Forbidden("only the creator can submit this APR")
	}
	if a.Status != models.StatusDraft {
		return nil, apperr.BadRequest("only draft APRs can be submitted for approval")
	}

	if err := s.store.UpdateApr(id, companyID, map[string]any{
		"status": string(models.StatusPendingApproval),
	}); err != nil {
		return nil, err
	}
	s.audit(act, "SUBMIT_APR", id, map[string]any{})
	return s.store.GetApr(id, companyID)
}

type ReviewInput struct {
	Approved bool   `json:"approved"`
	Comments string `json:"comments"`
}

// Review approves or rejects a pending APR. The status transition is a
// conditional update: if another reviewer got there first the write
// affects no rows and surfaces as Conflict.
func (s *Service) Review(act Actor, id uint, in ReviewInput) (*models.Apr, error) {
	if err := permissions.Authorize(act.User, permissions.CapReviewApr); err != nil {
		return nil, err
	}
	companyID := *act.User.CompanyID

	a, err := s.store.GetApr(id, companyID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusPendingApproval {
		return nil, apperr.BadRequest("only pending APRs can be reviewed")
	}

	status := models.StatusRejected
	action := "REJECT_APR"
	if in.Approved {
		status = models.StatusApproved
		action = "APPROVE_APR"
	}
	now := time.Now()
	if err := s.store.ReviewApr(id, companyID, map[string]any{
		"status":            string(status),
		"approved_by":       act.User.ID,
		"approved_at":       now,
		"approval_comments": in.Comments,
	}); err != nil {
		return nil, err
	}

	s.audit(act, action, id, map[string]any{"comments": in.Comments})
	return s.store.GetApr(id, companyID)
}

// Delete removes a draft APR and everything attached to it. Only the
// creator can delete, and only while still in draft.
func (s *Service) Delete(act Actor, id uint) error {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return err
	}
	a, err := s.store.GetApr(id, companyID)
	if err != nil {
		return err
	}
	if a.CreatedBy != act.User.ID {
		return apperr.Forbidden("only the creator can delete this APR")
	}
	if a.Status != models.StatusDraft {
		return apperr.BadRequest("only draft APRs can be deleted")
	}

	if err := s.store.DeleteApr(id, companyID); err != nil {
		return err
	}
	s.audit(act, "DELETE_APR", id, map[string]any{"title": a.Title})
	return nil
}

// AddImage stores the raw image bytes and records the attachment. The
// object key is namespaced by company and APR so tenants never collide.
func (s *Service) AddImage(ctx context.Context, act Actor, id uint, data []byte, contentType, caption string, position int) (*models.AprImage, error) {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetApr(id, companyID); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperr.BadRequest("image data is empty")
	}

	ext := ".jpg"
	if contentType == "image/png" {
		ext = ".png"
	}
	key := fmt.Sprintf("apr-images/%d/%d/%s%s", companyID, id, uuid.NewString(), ext)
	url, err := s.objects.Put(ctx, key, data, contentType)
	if err != nil {
		return nil, apperr.Internal("failed to store image", err)
	}

	img := &models.AprImage{
		AprID:    id,
		ImageURL: url,
		ImageKey: key,
		Caption:  caption,
		Position: position,
	}
	if err := s.store.AddAprImage(img); err != nil {
		return nil, err
	}
	return img, nil
}

type ResponseInput struct {
	QuestionKey string `json:"questionKey" binding:"required"`
	Answer      string `json:"answer"`
}

// SaveResponses replaces the APR's questionnaire answers. Every key must
// exist in the catalog; question text and answer type come from the
// catalog, never from the caller.
func (s *Service) SaveResponses(act Actor, id uint, inputs []ResponseInput) ([]models.AprResponse, error) {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetApr(id, companyID); err != nil {
		return nil, err
	}

	responses := make([]models.AprResponse, 0, len(inputs))
	for _, in := range inputs {
		q, ok := QuestionByKey(in.QuestionKey)
		if !ok {
			return nil, apperr.BadRequest("unknown question key %q", in.QuestionKey)
		}
		responses = append(responses, models.AprResponse{
			AprID:        id,
			QuestionKey:  q.Key,
			QuestionText: q.Text,
			Answer:       in.Answer,
			AnswerType:   q.Type,
		})
	}

	if err := s.store.ReplaceAprResponses(id, responses); err != nil {
		return nil, err
	}
	return responses, nil
}

type SignatureInput struct {
	SignatureType models.SignatureType `json:"signatureType" binding:"required"`
	SignatureData string               `json:"signatureData" binding:"required"`
}

func (s *Service) AddSignature(act Actor, id uint, in SignatureInput) (*models.DigitalSignature, error) {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetApr(id, companyID); err != nil {
		return nil, err
	}
	switch in.SignatureType {
	case models.SignatureRequester, models.SignatureSafetyTech, models.SignatureSupervisor:
	default:
		return nil, apperr.BadRequest("unknown signature type %q", in.SignatureType)
	}

	sig := &models.DigitalSignature{
		AprID:         id,
		UserID:        act.User.ID,
		SignatureType: in.SignatureType,
		SignatureData: in.SignatureData,
		SignedAt:      time.Now(),
	}
	if err := s.store.AddSignature(sig); err != nil {
		return nil, err
	}
	return sig, nil
}

func (s *Service) Stats(act Actor) (*database.AprStats, error) {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return nil, err
	}
	return s.store.GetAprStats(companyID)
}

// Analyze runs the AI risk analysis for an APR and persists the result.
func (s *Service) Analyze(ctx context.Context, act Actor, id uint) (*analysis.Result, error) {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return nil, err
	}
	a, err := s.store.GetApr(id, companyID)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListAprResponses(id)
	if err != nil {
		return nil, err
	}
	images, err := s.store.ListAprImages(id)
	if err != nil {
		return nil, err
	}

	result, err := s.analyzer.Analyze(ctx, a, responses, images, act.User.Language)
	if err != nil {
		return nil, err
	}

	s.audit(act, "AI_ANALYZE_APR", id, map[string]any{"risksFound": len(result.Risks)})
	return result, nil
}

// DescribeImages returns free-text safety observations for the APR's
// attached photos. Always succeeds; failures come back as no observations.
func (s *Service) DescribeImages(ctx context.Context, act Actor, id uint) ([]string, error) {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetApr(id, companyID); err != nil {
		return nil, err
	}
	images, err := s.store.ListAprImages(id)
	if err != nil {
		return nil, err
	}
	return s.analyzer.DescribeImages(ctx, images, act.User.Language), nil
}

// Report assembles the document model for an APR and renders it in the
// actor's language. The stored analysis is used as-is; an APR without
// one still renders, just without the risk sections.
func (s *Service) Report(ctx context.Context, act Actor, id uint) ([]byte, error) {
	companyID, err := requireCompany(act.User)
	if err != nil {
		return nil, err
	}
	a, err := s.store.GetApr(id, companyID)
	if err != nil {
		return nil, err
	}
	images, err := s.store.ListAprImages(id)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListAprResponses(id)
	if err != nil {
		return nil, err
	}

	var result *analysis.Result
	if len(a.AIAnalysis) > 0 {
		var parsed analysis.Result
		if err := json.Unmarshal(a.AIAnalysis, &parsed); err == nil {
			result = &parsed
		}
	}

	company, err := s.store.GetCompanyByID(companyID)
	if err != nil {
		return nil, err
	}
	creator, err := s.store.GetUserByID(a.CreatedBy)
	if err != nil {
		return nil, err
	}
	var approver *models.User
	if a.ApprovedBy != nil {
		approver, err = s.store.GetUserByID(*a.ApprovedBy)
		if err != nil {
			return nil, err
		}
	}

	doc := report.Assemble(report.Input{
		Apr:       a,
		Images:    images,
		Responses: responses,
		Analysis:  result,
		Company:   company,
		Creator:   creator,
		Approver:  approver,
		Language:  act.User.Language,
	})
	out, err := s.renderer.Render(doc)
	if err != nil {
		return nil, apperr.Internal("failed to render report", err)
	}

	s.audit(act, "GENERATE_APR_REPORT", id, map[string]any{})
	return out, nil
}
