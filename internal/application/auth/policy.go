package auth

import (
	"fmt"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
)

// Capability acción mutante o sensible que requiere autorización. Conjunto cerrado.
type Capability string

const (
	CapImportDocuments        Capability = "import_documents"
	CapRegisterProducts       Capability = "register_products"
	CapRegisterCounterparties Capability = "register_counterparties"
	CapAdjustStock            Capability = "adjust_stock"
	CapRebuildProjection      Capability = "rebuild_projection"
	CapViewAccessLog          Capability = "view_access_log"
)

// Capabilities lista completa, en orden estable.
var Capabilities = []Capability{
	CapImportDocuments,
	CapRegisterProducts,
	CapRegisterCounterparties,
	CapAdjustStock,
	CapRebuildProjection,
	CapViewAccessLog,
}

// Policy decide si un rol posee una capacidad. El mapeo rol→capacidad pertenece al
// colaborador externo; el núcleo solo consume la respuesta.
type Policy interface {
	Allows(role entity.Role, capability Capability) bool
}

// PolicyFunc adapta una función a Policy.
type PolicyFunc func(role entity.Role, capability Capability) bool

// Allows implementa Policy.
func (f PolicyFunc) Allows(role entity.Role, capability Capability) bool { return f(role, capability) }

// StaticPolicy política en memoria rol → conjunto de capacidades.
type StaticPolicy map[entity.Role]map[Capability]bool

// Allows implementa Policy. Un rol desconocido no tiene capacidades.
func (p StaticPolicy) Allows(role entity.Role, capability Capability) bool {
	return p[role][capability]
}

// DefaultPolicy: admin todo; operador importa, registra y ajusta; visualizador solo lee.
func DefaultPolicy() StaticPolicy {
	all := make(map[Capability]bool, len(Capabilities))
	for _, c := range Capabilities {
		all[c] = true
	}
	return StaticPolicy{
		entity.RoleAdmin: all,
		entity.RoleOperator: {
			CapImportDocuments:        true,
			CapRegisterProducts:       true,
			CapRegisterCounterparties: true,
			CapAdjustStock:            true,
		},
		entity.RoleViewer: {},
	}
}

// Require devuelve domain.ErrForbidden si el rol no posee la capacidad.
func Require(p Policy, role entity.Role, capability Capability) error {
	if p == nil || !p.Allows(role, capability) {
		return fmt.Errorf("%w: rol %q sin capacidad %q", domain.ErrForbidden, role, capability)
	}
	return nil
}
