package database

import (
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"apr-manager/internal/apperr"
	"apr-manager/internal/models"
)

// Store is the storage boundary handed to services and handlers. It is
// constructed once in main and injected everywhere, so tests can build
// their own against sqlite. Every APR lookup takes (id, companyID); a
// row under another tenant behaves exactly like a missing row.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the raw handle for migrations in tests.
func (s *Store) DB() *gorm.DB { return s.db }

//
// companies
//

// CreateCompany inserts and relies on the unique index on code as the
// authoritative duplicate check; a concurrent insert with the same code
// still surfaces as BadRequest, never as an internal error.
func (s *Store) CreateCompany(c *models.Company) error {
	if err := s.db.Create(c).Error; err != nil {
		if isDuplicateKey(err) {
			return apperr.BadRequest("company code already exists")
		}
		return apperr.Internal("failed to create company", err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func (s *Store) GetCompanyByID(id uint) (*models.Company, error) {
	var c models.Company
	if err := s.db.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("company not found")
		}
		return nil, apperr.Internal("failed to load company", err)
	}
	return &c, nil
}

func (s *Store) GetCompanyByCode(code string) (*models.Company, error) {
	var c models.Company
	if err := s.db.Where("code = ?", code).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("company not found")
		}
		return nil, apperr.Internal("failed to load company", err)
	}
	return &c, nil
}

type CompanyWithCount struct {
	models.Company
	UserCount int64 `json:"userCount"`
}

func (s *Store) ListCompanies() ([]CompanyWithCount, error) {
	var companies []models.Company
	if err := s.db.Order("created_at desc").Find(&companies).Error; err != nil {
		return nil, apperr.Internal("failed to list companies", err)
	}

	out := make([]CompanyWithCount, 0, len(companies))
	for _, c := range companies {
		var count int64
		if err := s.db.Model(&models.User{}).Where("company_id = ?", c.ID).Count(&count).Error; err != nil {
			return nil, apperr.Internal("failed to count company users", err)
		}
		out = append(out, CompanyWithCount{Company: c, UserCount: count})
	}
	return out, nil
}

func (s *Store) UpdateCompany(id uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := s.db.Model(&models.Company{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return apperr.Internal("failed to update company", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("company not found")
	}
	return nil
}

//
// admin email routing
//

func (s *Store) AddCompanyAdminEmail(e *models.CompanyAdminEmail) error {
	if err := s.db.Create(e).Error; err != nil {
		return apperr.Internal("failed to add admin email", err)
	}
	return nil
}

func (s *Store) RemoveCompanyAdminEmail(id uint) error {
	res := s.db.Delete(&models.CompanyAdminEmail{}, id)
	if res.Error != nil {
		return apperr.Internal("failed to remove admin email", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("admin email not found")
	}
	return nil
}

func (s *Store) ListCompanyAdminEmails(companyID uint) ([]models.CompanyAdminEmail, error) {
	var out []models.CompanyAdminEmail
	if err := s.db.Where("company_id = ?", companyID).Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list admin emails", err)
	}
	return out, nil
}

// FindCompanyByAdminEmail resolves the admin-email routing table; nil
// when the email is not listed anywhere.
func (s *Store) FindCompanyByAdminEmail(email string) (*models.Company, error) {
	var entry models.CompanyAdminEmail
	err := s.db.Where("email = ?", email).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("failed to resolve admin email", err)
	}
	return s.GetCompanyByID(entry.CompanyID)
}

//
// users
//

func (s *Store) CreateUser(u *models.User) error {
	if err := s.db.Create(u).Error; err != nil {
		return apperr.Internal("failed to create user", err)
	}
	return nil
}

func (s *Store) GetUserByID(id uint) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return &u, nil
}

func (s *Store) ListCompanyUsers(companyID uint) ([]models.User, error) {
	var out []models.User
	if err := s.db.Where("company_id = ?", companyID).Order("created_at asc").Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	return out, nil
}

func (s *Store) CountActiveUsers(companyID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.User{}).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internal("failed to count users", err)
	}
	return count, nil
}

func (s *Store) UpdateUser(id uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := s.db.Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return apperr.Internal("failed to update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

//
// aprs: all lookups scoped by (id, company_id)
//

func (s *Store) CreateApr(a *models.Apr) error {
	if err := s.db.Create(a).Error; err != nil {
		return apperr.Internal("failed to create APR", err)
	}
	return nil
}

func (s *Store) GetApr(id, companyID uint) (*models.Apr, error) {
	var a models.Apr
	err := s.db.Where("id = ? AND company_id = ?", id, companyID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("APR not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load APR", err)
	}
	return &a, nil
}

type AprFilter struct {
	Status    models.AprStatus
	CreatedBy uint
	Limit     int
}

func (s *Store) ListAprs(companyID uint, f AprFilter) ([]models.Apr, error) {
	q := s.db.Where("company_id = ?", companyID).Order("created_at desc")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CreatedBy != 0 {
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var out []models.Apr
	if err := q.Limit(limit).Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list APRs", err)
	}
	return out, nil
}

func (s *Store) UpdateApr(id, companyID uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := s.db.Model(&models.Apr{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Updates(updates)
	if res.Error != nil {
		return apperr.Internal("failed to update APR", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("APR not found")
	}
	return nil
}

// ReviewApr flips a pending APR to its terminal review status. The
// update is conditioned on the current status so two concurrent reviews
// cannot both win; the loser sees Conflict.
func (s *Store) ReviewApr(id, companyID uint, updates map[string]any) error {
	res := s.db.Model(&models.Apr{}).
		Where("id = ? AND company_id = ? AND status = ?", id, companyID, models.StatusPendingApproval).
		Updates(updates)
	if res.Error != nil {
		return apperr.Internal("failed to review APR", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("APR is no longer pending approval")
	}
	return nil
}

// SaveAprAnalysis writes the validated analysis blob as a single point
// update. Nothing else touches the ai_analysis column, so a failure
// anywhere upstream leaves the previous value intact.
func (s *Store) SaveAprAnalysis(id, companyID uint, analysis datatypes.JSON) error {
	res := s.db.Model(&models.Apr{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Update("ai_analysis", analysis)
	if res.Error != nil {
		return apperr.Internal("failed to save analysis", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("APR not found")
	}
	return nil
}

// DeleteApr removes an APR and its attachments in one transaction.
func (s *Store) DeleteApr(id, companyID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND company_id = ?", id, companyID).Delete(&models.Apr{})
		if res.Error != nil {
			return apperr.Internal("failed to delete APR", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("APR not found")
		}
		if err := tx.Where("apr_id = ?", id).Delete(&models.AprImage{}).Error; err != nil {
			return apperr.Internal("failed to delete APR images", err)
		}
		if err := tx.Where("apr_id = ?", id).Delete(&models.AprResponse{}).Error; err != nil {
			return apperr.Internal("failed to delete APR responses", err)
		}
		if err := tx.Where("apr_id = ?", id).Delete(&models.DigitalSignature{}).Error; err != nil {
			return apperr.Internal("failed to delete APR signatures", err)
		}
		return nil
	})
}

type AprStats struct {
	Total    int64 `json:"total"`
	Draft    int64 `json:"draft"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

func (s *Store) GetAprStats(companyID uint) (*AprStats, error) {
	var stats AprStats
	base := func() *gorm.DB {
		return s.db.Model(&models.Apr{}).Where("company_id = ?", companyID)
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, apperr.Internal("failed to count APRs", err)
	}
	counts := []struct {
		status models.AprStatus
		dst    *int64
	}{
		{models.StatusDraft, &stats.Draft},
		{models.StatusPendingApproval, &stats.Pending},
		{models.StatusApproved, &stats.Approved},
		{models.StatusRejected, &stats.Rejected},
	}
	for _, c := range counts {
		if err := base().Where("status = ?", c.status).Count(c.dst).Error; err != nil {
			return nil, apperr.Internal("failed to count APRs", err)
		}
	}
	return &stats, nil
}

//
// images, responses, signatures
//

func (s *Store) AddAprImage(img *models.AprImage) error {
	if err := s.db.Create(img).Error; err != nil {
		return apperr.Internal("failed to add image", err)
	}
	return nil
}

func (s *Store) ListAprImages(aprID uint) ([]models.AprImage, error) {
	var out []models.AprImage
	if err := s.db.Where("apr_id = ?", aprID).Order("position asc").Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list images", err)
	}
	return out, nil
}

// ReplaceAprResponses swaps the full questionnaire answer set in one
// transaction: delete-then-insert, never a partial patch.
func (s *Store) ReplaceAprResponses(aprID uint, responses []models.AprResponse) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("apr_id = ?", aprID).Delete(&models.AprResponse{}).Error; err != nil {
			return apperr.Internal("failed to clear responses", err)
		}
		for i := range responses {
			responses[i].AprID = aprID
			if err := tx.Create(&responses[i]).Error; err != nil {
				return apperr.Internal("failed to save response", err)
			}
		}
		return nil
	})
}

func (s *Store) ListAprResponses(aprID uint) ([]models.AprResponse, error) {
	var out []models.AprResponse
	if err := s.db.Where("apr_id = ?", aprID).Order("created_at asc").Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list responses", err)
	}
	return out, nil
}

func (s *Store) AddSignature(sig *models.DigitalSignature) error {
	if err := s.db.Create(sig).Error; err != nil {
		return apperr.Internal("failed to add signature", err)
	}
	return nil
}

func (s *Store) ListSignatures(aprID uint) ([]models.DigitalSignature, error) {
	var out []models.DigitalSignature
	if err := s.db.Where("apr_id = ?", aprID).Order("signed_at asc").Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list signatures", err)
	}
	return out, nil
}
