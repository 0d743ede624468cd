package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apr-manager/internal/apperr"
	"apr-manager/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "store_test.db"))
	require.NoError(t, err)
	return NewStore(db)
}

func TestCreateCompanyDuplicateCodeIsBadRequest(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateCompany(&models.Company{
		Code: "ACME", Name: "Acme Ltd", MaxUsers: 10, IsActive: true,
	}))

	err := store.CreateCompany(&models.Company{
		Code: "ACME", Name: "Acme Clone", MaxUsers: 10, IsActive: true,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "already exists")
}

func TestCreateCompanyDistinctCodes(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateCompany(&models.Company{Code: "ACME", Name: "Acme", MaxUsers: 5, IsActive: true}))
	require.NoError(t, store.CreateCompany(&models.Company{Code: "GLOBEX", Name: "Globex", MaxUsers: 5, IsActive: true}))

	c, err := store.GetCompanyByCode("GLOBEX")
	require.NoError(t, err)
	assert.Equal(t, "Globex", c.Name)
}
