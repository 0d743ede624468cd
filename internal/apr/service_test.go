package apr

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apr-manager/internal/analysis"
	"apr-manager/internal/apperr"
	"apr-manager/internal/database"
	"apr-manager/internal/models"
	"apr-manager/internal/report"
)

type stubAnalyzer struct {
	store        *database.Store
	result       *analysis.Result
	err          error
	observations []string
}

func (a *stubAnalyzer) Analyze(_ context.Context, apr *models.Apr, _ []models.AprResponse, _ []models.AprImage, _ models.Language) (*analysis.Result, error) {
	if a.err != nil {
		return nil, a.err
	}
	blob, _ := json.Marshal(a.result)
	if err := a.store.SaveAprAnalysis(apr.ID, apr.CompanyID, blob); err != nil {
		return nil, err
	}
	return a.result, nil
}

func (a *stubAnalyzer) DescribeImages(_ context.Context, _ []models.AprImage, _ models.Language) []string {
	return a.observations
}

type memObjects struct {
	keys []string
}

func (m *memObjects) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	m.keys = append(m.keys, key)
	return "http://files.test/" + key, nil
}

type fixture struct {
	svc      *Service
	store    *database.Store
	objects  *memObjects
	analyzer *stubAnalyzer

	company   *models.Company
	other     *models.Company
	requester *models.User
	tech      *models.User
	admin     *models.User
	outsider  *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "apr_test.db"))
	require.NoError(t, err)
	store := database.NewStore(db)

	company := &models.Company{Code: "ACME", Name: "Acme Industrial", MaxUsers: 10, IsActive: true}
	require.NoError(t, store.CreateCompany(company))
	other := &models.Company{Code: "GLOBEX", Name: "Globex", MaxUsers: 10, IsActive: true}
	require.NoError(t, store.CreateCompany(other))

	mkUser := func(email string, role models.UserRole, companyID uint) *models.User {
		u := &models.User{
			CompanyID:    &companyID,
			Email:        email,
			Name:         email,
			PasswordHash: "x",
			Role:         role,
			Language:     models.LangEnUS,
			IsActive:     true,
		}
		require.NoError(t, store.CreateUser(u))
		return u
	}

	analyzer := &stubAnalyzer{
		store: store,
		result: &analysis.Result{
			Risks: []analysis.RiskItem{{
				Task: "Isolate line", Hazard: "Stored pressure",
				Probability: 3, Severity: 4, RiskLevel: 12,
				RiskCategory:    "Inadmissible – do not execute",
				ControlMeasures: "Depressurize and lock out",
				ApplicableNRs:   []string{"NR-13"},
			}},
			RequiredPPE: []string{"Helmet"},
			Summary:     "One critical risk found.",
		},
		observations: []string{"missing guard rail"},
	}
	objects := &memObjects{}
	svc := NewService(store, objects, analyzer, report.NewHTMLRenderer())

	return &fixture{
		svc:      svc,
		store:    store,
		objects:  objects,
		analyzer: analyzer,

		company:   company,
		other:     other,
		requester: mkUser("req@acme.test", models.RoleRequester, company.ID),
		tech:      mkUser("tech@acme.test", models.RoleSafetyTech, company.ID),
		admin:     mkUser("admin@acme.test", models.RoleCompanyAdmin, company.ID),
		outsider:  mkUser("req@globex.test", models.RoleRequester, other.ID),
	}
}

func actor(u *models.User) Actor {
	return Actor{User: u, IP: "127.0.0.1", UserAgent: "test"}
}

func (f *fixture) createDraft(t *testing.T) *models.Apr {
	t.Helper()
	a, err := f.svc.Create(actor(f.requester), CreateInput{
		Title:               "Line 3 maintenance",
		Description:         "Quarterly overhaul",
		Location:            "Plant floor",
		ActivityDescription: "Replace bearings on conveyor line 3",
	})
	require.NoError(t, err)
	return a
}

func TestCreateRequiresCompany(t *testing.T) {
	f := newFixture(t)

	detached := &models.User{Role: models.RoleSuperadmin, IsActive: true}
	_, err := f.svc.Create(actor(detached), CreateInput{Title: "x", ActivityDescription: "y"})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)

	_, foreignErr := f.svc.Get(actor(f.outsider), a.ID)
	_, missingErr := f.svc.Get(actor(f.requester), 99999)

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(foreignErr))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(missingErr))
	assert.Equal(t, foreignErr.Error(), missingErr.Error())
}

func TestSubmitOnlyFromDraft(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)

	submitted, err := f.svc.SubmitForApproval(actor(f.requester), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, submitted.Status)

	_, err = f.svc.SubmitForApproval(actor(f.requester), a.ID)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestSubmitRestrictedToCreator(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)

	_, err := f.svc.SubmitForApproval(actor(f.tech), a.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestReviewRequiresPendingStatus(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)

	_, err := f.svc.Review(actor(f.tech), a.ID, ReviewInput{Approved: true})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestReviewRequiresSafetyTechRank(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)
	_, err := f.svc.SubmitForApproval(actor(f.requester), a.ID)
	require.NoError(t, err)

	_, err = f.svc.Review(actor(f.requester), a.ID, ReviewInput{Approved: true})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	reviewed, err := f.svc.Review(actor(f.admin), a.ID, ReviewInput{Approved: true, Comments: "ok"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ApprovedBy)
	assert.Equal(t, f.admin.ID, *reviewed.ApprovedBy)
	assert.NotNil(t, reviewed.ApprovedAt)
}

func TestConcurrentReviewLoserSeesConflict(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)
	_, err := f.svc.SubmitForApproval(actor(f.requester), a.ID)
	require.NoError(t, err)

	// The first reviewer wins between the second reviewer's status read
	// and their write.
	require.NoError(t, f.store.ReviewApr(a.ID, f.company.ID, map[string]any{
		"status":      string(models.StatusApproved),
		"approved_by": f.tech.ID,
	}))

	err = f.store.ReviewApr(a.ID, f.company.ID, map[string]any{
		"status": string(models.StatusRejected),
	})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUpdateApprovedAprForbiddenForCreator(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)
	_, err := f.svc.SubmitForApproval(actor(f.requester), a.ID)
	require.NoError(t, err)
	_, err = f.svc.Review(actor(f.tech), a.ID, ReviewInput{Approved: true})
	require.NoError(t, err)

	title := "new title"
	_, err = f.svc.Update(actor(f.requester), a.ID, UpdateInput{Title: &title})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// Company admins can still fix an approved APR.
	updated, err := f.svc.Update(actor(f.admin), a.ID, UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
}

func TestEditingRejectedAprResetsToDraft(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)
	_, err := f.svc.SubmitForApproval(actor(f.requester), a.ID)
	require.NoError(t, err)
	_, err = f.svc.Review(actor(f.tech), a.ID, ReviewInput{Approved: false, Comments: "missing LOTO plan"})
	require.NoError(t, err)

	desc := "Replace bearings, LOTO plan attached"
	updated, err := f.svc.Update(actor(f.requester), a.ID, UpdateInput{ActivityDescription: &desc})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, updated.Status)

	// Back in draft it can be resubmitted.
	resubmitted, err := f.svc.SubmitForApproval(actor(f.requester), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, resubmitted.Status)
}

func TestCreateAndUpdateCarryPlanningFields(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(actor(f.requester), CreateInput{
		Title:               "Tank cleaning",
		ActivityDescription: "Internal cleaning of storage tank T-12",
		TeamMembers:         []string{"Joana", "Carlos"},
		Tools:               []string{"Ventilation fan"},
		EmergencyContacts: []models.EmergencyContact{
			{Name: "Plant nurse", Phone: "+55 11 9999-0000", Role: "First aid"},
		},
	})
	require.NoError(t, err)

	loaded, err := f.svc.Get(actor(f.requester), a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Joana", "Carlos"}, loaded.Apr.TeamMemberList())
	assert.Equal(t, []string{"Ventilation fan"}, loaded.Apr.ToolList())
	contacts := loaded.Apr.EmergencyContactList()
	require.Len(t, contacts, 1)
	assert.Equal(t, "Plant nurse", contacts[0].Name)

	tools := []string{"Ventilation fan", "Gas detector"}
	updated, err := f.svc.Update(actor(f.requester), a.ID, UpdateInput{Tools: &tools})
	require.NoError(t, err)
	assert.Equal(t, tools, updated.ToolList())
	assert.Equal(t, []string{"Joana", "Carlos"}, updated.TeamMemberList())
}

func TestSaveResponsesValidatesAgainstCatalog(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)

	_, err := f.svc.SaveResponses(actor(f.requester), a.ID, []ResponseInput{
		{QuestionKey: "not_a_question", Answer: "yes"},
	})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	saved, err := f.svc.SaveResponses(actor(f.requester), a.ID, []ResponseInput{
		{QuestionKey: "hot_work", Answer: "true"},
		{QuestionKey: "max_weight", Answer: "25"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, models.AnswerBoolean, saved[0].AnswerType)
	assert.Contains(t, saved[0].QuestionText, "trabalho a quente")

	// Saving again replaces, never appends.
	saved, err = f.svc.SaveResponses(actor(f.requester), a.ID, []ResponseInput{
		{QuestionKey: "loto_required", Answer: "true"},
	})
	require.NoError(t, err)
	detail, err := f.svc.Get(actor(f.requester), a.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Responses, 1)
	assert.Equal(t, "loto_required", detail.Responses[0].QuestionKey)
}

func TestAddImageNamespacesKeysByTenant(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)

	img, err := f.svc.AddImage(context.Background(), actor(f.requester), a.ID, []byte{0xFF, 0xD8}, "image/jpeg", "pump skid", 0)
	require.NoError(t, err)
	assert.Contains(t, img.ImageKey, "apr-images/")
	assert.Contains(t, img.ImageURL, "http://files.test/")
	require.Len(t, f.objects.keys, 1)
	assert.Regexp(t, `^apr-images/\d+/\d+/.+\.jpg$`, f.objects.keys[0])

	_, err = f.svc.AddImage(context.Background(), actor(f.requester), a.ID, nil, "image/jpeg", "", 1)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestDeleteOnlyDraftByCreator(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)
	_, err := f.svc.AddImage(context.Background(), actor(f.requester), a.ID, []byte{1}, "image/jpeg", "", 0)
	require.NoError(t, err)

	err = f.svc.Delete(actor(f.tech), a.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	require.NoError(t, f.svc.Delete(actor(f.requester), a.ID))
	_, err = f.svc.Get(actor(f.requester), a.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	imgs, err := f.store.ListAprImages(a.ID)
	require.NoError(t, err)
	assert.Empty(t, imgs)

	b := f.createDraft(t)
	_, err = f.svc.SubmitForApproval(actor(f.requester), b.ID)
	require.NoError(t, err)
	err = f.svc.Delete(actor(f.requester), b.ID)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestAnalyzePersistsResultAndAudits(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)

	result, err := f.svc.Analyze(context.Background(), actor(f.requester), a.ID)
	require.NoError(t, err)
	require.Len(t, result.Risks, 1)

	detail, err := f.svc.Get(actor(f.requester), a.ID)
	require.NoError(t, err)
	assert.Contains(t, string(detail.Apr.AIAnalysis), `"riskLevel":12`)

	logs, err := f.store.ListAuditLogs(f.company.ID, 50)
	require.NoError(t, err)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	assert.Contains(t, actions, "AI_ANALYZE_APR")
}

func TestLifecycleScenario(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(actor(f.requester), CreateInput{
		Title:               "Line 3 maintenance",
		Location:            "Building B",
		ActivityDescription: "Swap hydraulic hoses under residual pressure",
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.svc.AddImage(context.Background(), actor(f.requester), a.ID, []byte{byte(i + 1)}, "image/jpeg", "", i)
		require.NoError(t, err)
	}
	_, err = f.svc.SaveResponses(actor(f.requester), a.ID, []ResponseInput{
		{QuestionKey: "loto_required", Answer: "true"},
		{QuestionKey: "stored_energy", Answer: "true"},
	})
	require.NoError(t, err)

	result, err := f.svc.Analyze(context.Background(), actor(f.requester), a.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Risks)

	_, err = f.svc.SubmitForApproval(actor(f.requester), a.ID)
	require.NoError(t, err)

	reviewed, err := f.svc.Review(actor(f.tech), a.ID, ReviewInput{
		Approved: false,
		Comments: "missing LOTO plan",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, reviewed.Status)
	require.NotNil(t, reviewed.ApprovedBy)
	assert.Equal(t, f.tech.ID, *reviewed.ApprovedBy)
	assert.Equal(t, "missing LOTO plan", reviewed.ApprovalComments)

	logs, err := f.store.ListAuditLogs(f.company.ID, 50)
	require.NoError(t, err)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	assert.Contains(t, actions, "CREATE_APR")
	assert.Contains(t, actions, "SUBMIT_APR")
	assert.Contains(t, actions, "REJECT_APR")

	stats, err := f.svc.Stats(actor(f.requester))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Rejected)
}

func TestReportRendersStoredAnalysis(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)
	_, err := f.svc.Analyze(context.Background(), actor(f.requester), a.ID)
	require.NoError(t, err)

	out, err := f.svc.Report(context.Background(), actor(f.requester), a.ID)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "PRELIMINARY RISK ANALYSIS")
	assert.Contains(t, html, "Stored pressure")
	assert.Contains(t, html, "DO NOT EXECUTE")
}

func TestDescribeImagesPassesThrough(t *testing.T) {
	f := newFixture(t)
	a := f.createDraft(t)

	obs, err := f.svc.DescribeImages(context.Background(), actor(f.requester), a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"missing guard rail"}, obs)
}
