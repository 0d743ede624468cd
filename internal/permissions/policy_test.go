package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apr-manager/internal/apperr"
	"apr-manager/internal/models"
)

func TestCumulativeCapabilities(t *testing.T) {
	tests := []struct {
		role models.UserRole
		cap  Capability
		want bool
	}{
		{models.RoleRequester, CapCreateApr, true},
		{models.RoleRequester, CapReviewApr, false},
		{models.RoleRequester, CapManageUsers, false},
		{models.RoleRequester, CapManageCompanies, false},

		{models.RoleSafetyTech, CapCreateApr, true},
		{models.RoleSafetyTech, CapReviewApr, true},
		{models.RoleSafetyTech, CapManageUsers, false},

		{models.RoleCompanyAdmin, CapCreateApr, true},
		{models.RoleCompanyAdmin, CapReviewApr, true},
		{models.RoleCompanyAdmin, CapManageUsers, true},
		{models.RoleCompanyAdmin, CapManageCompanies, false},

		{models.RoleSuperadmin, CapCreateApr, true},
		{models.RoleSuperadmin, CapReviewApr, true},
		{models.RoleSuperadmin, CapManageUsers, true},
		{models.RoleSuperadmin, CapManageCompanies, true},

		{models.UserRole("ghost"), CapCreateApr, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.cap), func(t *testing.T) {
			assert.Equal(t, tt.want, Allows(tt.role, tt.cap))
		})
	}
}

func TestEveryLowerCapabilityIsInherited(t *testing.T) {
	caps := []Capability{CapCreateApr, CapReviewApr, CapManageUsers, CapManageCompanies}
	order := []models.UserRole{
		models.RoleRequester,
		models.RoleSafetyTech,
		models.RoleCompanyAdmin,
		models.RoleSuperadmin,
	}

	for i := 1; i < len(order); i++ {
		lower, higher := order[i-1], order[i]
		for _, cap := range caps {
			if Allows(lower, cap) {
				assert.Truef(t, Allows(higher, cap),
					"%s holds %s but %s does not", lower, cap, higher)
			}
		}
	}
}

func TestAuthorizeTenantAttachment(t *testing.T) {
	companyID := uint(7)

	attached := &models.User{Role: models.RoleRequester, CompanyID: &companyID}
	require.NoError(t, Authorize(attached, CapCreateApr))

	// company-scoped capability without a tenant is a BadRequest, not Forbidden
	detached := &models.User{Role: models.RoleCompanyAdmin}
	err := Authorize(detached, CapManageUsers)
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	// insufficient rank stays Forbidden even without a tenant
	err = Authorize(&models.User{Role: models.RoleRequester}, CapReviewApr)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// superadmin has no company and global capabilities are not scoped
	super := &models.User{Role: models.RoleSuperadmin}
	require.NoError(t, Authorize(super, CapManageCompanies))
}
