package entity

// Role rol del usuario autenticado, resuelto por la capa de presentación.
type Role string

// Roles conocidos por la política por defecto.
const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operador"
	RoleViewer   Role = "visualizador"
)
