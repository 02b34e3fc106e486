package entity

import "time"

// AccessLogEntry intento de inicio de sesión. Inmutable.
type AccessLogEntry struct {
	ID        int64
	Username  string
	Timestamp time.Time
	Success   bool
}

// AccessLogFilter filtros opcionales de la consulta; Limit 0 = sin límite.
type AccessLogFilter struct {
	From     *time.Time
	To       *time.Time
	Username *string
	Success  *bool
	Limit    int `validate:"gte=0"`
}
