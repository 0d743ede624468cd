// Package permissions implements the cumulative role policy. Roles are
// ordered by rank and a capability names the minimum rank that holds it,
// so inserting a new role is a one-line change here rather than an edit
// at every call site.
package permissions

import (
	"apr-manager/internal/apperr"
	"apr-manager/internal/models"
)

type Capability string

const (
	CapCreateApr       Capability = "apr:create"
	CapReviewApr       Capability = "apr:review"
	CapManageUsers     Capability = "users:manage"
	CapManageCompanies Capability = "companies:manage"
)

var roleRank = map[models.UserRole]int{
	models.RoleRequester:    1,
	models.RoleSafetyTech:   2,
	models.RoleCompanyAdmin: 3,
	models.RoleSuperadmin:   4,
}

var minRank = map[Capability]int{
	CapCreateApr:       1,
	CapReviewApr:       2,
	CapManageUsers:     3,
	CapManageCompanies: 4,
}

// companyScoped capabilities act inside a tenant and therefore require
// the actor to be attached to one.
var companyScoped = map[Capability]bool{
	CapCreateApr:   true,
	CapReviewApr:   true,
	CapManageUsers: true,
}

// Rank returns the cumulative rank of a role, 0 for unknown roles.
func Rank(role models.UserRole) int { return roleRank[role] }

// Allows reports whether a role holds a capability, ignoring tenant
// attachment.
func Allows(role models.UserRole, cap Capability) bool {
	min, ok := minRank[cap]
	return ok && roleRank[role] >= min
}

// Authorize checks a capability for an actor. An insufficient role is
// Forbidden; a company-scoped capability requested by an actor with no
// tenant is BadRequest, which is a caller mistake rather than a policy
// denial.
func Authorize(actor *models.User, cap Capability) error {
	if actor == nil || !Allows(actor.Role, cap) {
		return apperr.Forbidden("insufficient role for this operation")
	}
	if companyScoped[cap] && actor.CompanyID == nil {
		return apperr.BadRequest("user is not attached to a company")
	}
	return nil
}
