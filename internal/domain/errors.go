package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Los adaptadores envuelven estos centinelas con fmt.Errorf("%w: ...") y los
// consumidores los distinguen con errors.Is.
var (
	// ErrMalformedDocument el contenido no es XML bien formado o le faltan campos obligatorios.
	ErrMalformedDocument = errors.New("documento mal formado")
	// ErrUnsupportedSchema XML bien formado que no corresponde a un layout NF-e reconocido.
	ErrUnsupportedSchema = errors.New("esquema de documento no soportado")
	// ErrDuplicate la huella del documento ya existe en el ledger.
	ErrDuplicate = errors.New("documento duplicado")
	// ErrConstraintViolation violación de integridad distinta a la huella duplicada.
	ErrConstraintViolation = errors.New("violación de restricción de integridad")
	// ErrForbidden el rol no tiene la capacidad requerida.
	ErrForbidden = errors.New("acceso denegado")
	// ErrStorageUnavailable el almacenamiento no responde; la transacción no se aplicó.
	ErrStorageUnavailable = errors.New("almacenamiento no disponible")

	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrNotFound          = errors.New("recurso no encontrado")
)
