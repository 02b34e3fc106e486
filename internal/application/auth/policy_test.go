package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekk0s/nfe-ledger/internal/application/auth"
	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
)

func TestDefaultPolicy(t *testing.T) {
	p := auth.DefaultPolicy()

	for _, c := range auth.Capabilities {
		assert.True(t, p.Allows(entity.RoleAdmin, c), "admin debe tener %s", c)
		assert.False(t, p.Allows(entity.RoleViewer, c), "visualizador no debe tener %s", c)
		assert.False(t, p.Allows(entity.Role("invitado"), c))
	}

	assert.True(t, p.Allows(entity.RoleOperator, auth.CapImportDocuments))
	assert.True(t, p.Allows(entity.RoleOperator, auth.CapRegisterProducts))
	assert.True(t, p.Allows(entity.RoleOperator, auth.CapRegisterCounterparties))
	assert.True(t, p.Allows(entity.RoleOperator, auth.CapAdjustStock))
	assert.False(t, p.Allows(entity.RoleOperator, auth.CapRebuildProjection))
	assert.False(t, p.Allows(entity.RoleOperator, auth.CapViewAccessLog))
}

func TestRequire(t *testing.T) {
	p := auth.DefaultPolicy()

	require.NoError(t, auth.Require(p, entity.RoleAdmin, auth.CapRebuildProjection))

	err := auth.Require(p, entity.RoleViewer, auth.CapImportDocuments)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Contains(t, err.Error(), "import_documents")

	// Sin política nadie pasa
	assert.True(t, errors.Is(auth.Require(nil, entity.RoleAdmin, auth.CapImportDocuments), domain.ErrForbidden))
}

func TestPolicyFunc(t *testing.T) {
	onlyImport := auth.PolicyFunc(func(_ entity.Role, c auth.Capability) bool {
		return c == auth.CapImportDocuments
	})
	assert.NoError(t, auth.Require(onlyImport, entity.RoleViewer, auth.CapImportDocuments))
	assert.Error(t, auth.Require(onlyImport, entity.RoleAdmin, auth.CapAdjustStock))
}
