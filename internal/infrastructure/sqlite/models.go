package sqlite

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/fiscal"
)

// Las cantidades y valores se guardan como TEXT (decimal exacto); issue_date como
// "2006-01-02" para que la comparación lexicográfica coincida con la cronológica.

type counterpartyModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	TaxID     string    `gorm:"column:tax_id"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (counterpartyModel) TableName() string { return "counterparties" }

func (m counterpartyModel) toEntity() *entity.Counterparty {
	return &entity.Counterparty{ID: m.ID, TaxID: m.TaxID, Name: m.Name, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

type productModel struct {
	Code            string          `gorm:"column:code;primaryKey"`
	Description     string          `gorm:"column:description"`
	CurrentQuantity decimal.Decimal `gorm:"column:current_quantity"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (productModel) TableName() string { return "products" }

func (m productModel) toEntity() *entity.Product {
	return &entity.Product{Code: m.Code, Description: m.Description, CurrentQuantity: m.CurrentQuantity, UpdatedAt: m.UpdatedAt}
}

type documentModel struct {
	Seq               int64           `gorm:"column:seq;primaryKey;autoIncrement"`
	Fingerprint       string          `gorm:"column:fingerprint"`
	AccessKey         string          `gorm:"column:access_key"`
	Kind              string          `gorm:"column:kind"`
	Direction         string          `gorm:"column:direction"`
	IssueDate         string          `gorm:"column:issue_date"`
	CounterpartyTaxID string          `gorm:"column:counterparty_tax_id"`
	Total             decimal.Decimal `gorm:"column:total"`
	LineCount         int             `gorm:"column:line_count"`
	AppliedAt         time.Time       `gorm:"column:applied_at"`
}

func (documentModel) TableName() string { return "documents" }

type movementModel struct {
	ID             string          `gorm:"column:id;primaryKey"`
	DocumentSeq    int64           `gorm:"column:document_seq"`
	LineNumber     int             `gorm:"column:line_number"`
	ProductCode    string          `gorm:"column:product_code"`
	Description    string          `gorm:"column:description"`
	Direction      string          `gorm:"column:direction"`
	Quantity       decimal.Decimal `gorm:"column:quantity"`
	UnitValue      decimal.Decimal `gorm:"column:unit_value"`
	IssueDate      string          `gorm:"column:issue_date"`
	CounterpartyID *string         `gorm:"column:counterparty_id"`
}

func (movementModel) TableName() string { return "movements" }

// movementRow lectura de movements unida a documents para obtener la huella.
// Las columnas van declaradas aquí: GORM ignora los campos embebidos de tipo no exportado.
type movementRow struct {
	ID                  string          `gorm:"column:id"`
	DocumentSeq         int64           `gorm:"column:document_seq"`
	DocumentFingerprint string          `gorm:"column:document_fingerprint"`
	LineNumber          int             `gorm:"column:line_number"`
	ProductCode         string          `gorm:"column:product_code"`
	Description         string          `gorm:"column:description"`
	Direction           string          `gorm:"column:direction"`
	Quantity            decimal.Decimal `gorm:"column:quantity"`
	UnitValue           decimal.Decimal `gorm:"column:unit_value"`
	IssueDate           string          `gorm:"column:issue_date"`
	CounterpartyID      *string         `gorm:"column:counterparty_id"`
}

func (r movementRow) toEntity() (*entity.Movement, error) {
	issue, err := time.Parse(fiscal.DateLayout, r.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: issue_date %q ilegible en el movimiento %q", domain.ErrConstraintViolation, r.IssueDate, r.ID)
	}
	return &entity.Movement{
		ID:                  r.ID,
		DocumentSeq:         r.DocumentSeq,
		DocumentFingerprint: r.DocumentFingerprint,
		LineNumber:          r.LineNumber,
		ProductCode:         r.ProductCode,
		Description:         r.Description,
		Direction:           entity.Direction(r.Direction),
		Quantity:            r.Quantity,
		UnitValue:           r.UnitValue,
		IssueDate:           issue,
		CounterpartyID:      r.CounterpartyID,
	}, nil
}

// documentRow lectura de documents con el nombre de la contraparte (LEFT JOIN).
type documentRow struct {
	Seq               int64           `gorm:"column:seq"`
	Fingerprint       string          `gorm:"column:fingerprint"`
	AccessKey         string          `gorm:"column:access_key"`
	Kind              string          `gorm:"column:kind"`
	Direction         string          `gorm:"column:direction"`
	IssueDate         string          `gorm:"column:issue_date"`
	CounterpartyTaxID string          `gorm:"column:counterparty_tax_id"`
	CounterpartyName  string          `gorm:"column:counterparty_name"`
	Total             decimal.Decimal `gorm:"column:total"`
	LineCount         int             `gorm:"column:line_count"`
}

func (r documentRow) toEntity() (*entity.DocumentSummary, error) {
	issue, err := time.Parse(fiscal.DateLayout, r.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: issue_date %q ilegible en el documento %d", domain.ErrConstraintViolation, r.IssueDate, r.Seq)
	}
	return &entity.DocumentSummary{
		Seq:               r.Seq,
		Fingerprint:       r.Fingerprint,
		AccessKey:         r.AccessKey,
		Kind:              entity.DocumentKind(r.Kind),
		Direction:         entity.Direction(r.Direction),
		IssueDate:         issue,
		CounterpartyTaxID: r.CounterpartyTaxID,
		CounterpartyName:  r.CounterpartyName,
		Total:             r.Total,
		LineCount:         r.LineCount,
	}, nil
}

type accessLogModel struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Username   string `gorm:"column:username"`
	TsUnixNano int64  `gorm:"column:ts_unix_nano"`
	Success    bool   `gorm:"column:success"`
}

func (accessLogModel) TableName() string { return "access_log" }

func (m accessLogModel) toEntity() *entity.AccessLogEntry {
	return &entity.AccessLogEntry{ID: m.ID, Username: m.Username, Timestamp: time.Unix(0, m.TsUnixNano).UTC(), Success: m.Success}
}
