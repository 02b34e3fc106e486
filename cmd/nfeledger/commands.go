package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/ekk0s/nfe-ledger/internal/application/dto"
	"github.com/ekk0s/nfe-ledger/internal/application/ingestion"
	"github.com/ekk0s/nfe-ledger/internal/application/reports"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/fiscal"
	"github.com/ekk0s/nfe-ledger/internal/infrastructure/export"
	"github.com/ekk0s/nfe-ledger/pkg/taxid"
)

var (
	errUsage   = errors.New("uso incorrecto")
	errPartial = errors.New("lote con documentos rechazados")
)

// opts valores de flags de un comando, leídos tras el Parse.
type opts map[string]interface{}

type command struct {
	summary string
	flags   func(fs *pflag.FlagSet) opts
	run     func(ctx context.Context, env *environment, o opts, args []string, out io.Writer) error
}

var commandOrder = []string{
	"import", "stock", "rebuild", "financial", "documents", "document-items", "history", "access-log",
	"register-product", "register-counterparty", "adjust", "login-attempt",
}

var commands = map[string]command{
	"import":                {summary: "importa XML, ZIP o directorios de NF-e", flags: noFlags, run: runImport},
	"stock":                 {summary: "stock actual por producto (--verify compara con el ledger)", flags: stockFlags, run: runStock},
	"rebuild":               {summary: "recalcula la proyección de stock desde el ledger", flags: noFlags, run: runRebuild},
	"financial":             {summary: "entradas, salidas y saldo de un período", flags: financialFlags, run: runFinancial},
	"documents":             {summary: "historial de notas filtrado (clave, fecha, tipo, contraparte, total)", flags: documentFlags, run: runDocuments},
	"document-items":        {summary: "líneas de una nota (--seq o --fingerprint)", flags: documentItemsFlags, run: runDocumentItems},
	"history":               {summary: "historial de movimientos filtrado", flags: historyFlags, run: runHistory},
	"access-log":            {summary: "consulta intentos de inicio de sesión", flags: accessLogFlags, run: runAccessLog},
	"register-product":      {summary: "alta manual de producto", flags: productFlags, run: runRegisterProduct},
	"register-counterparty": {summary: "alta manual de contraparte (CNPJ/CPF)", flags: counterpartyFlags, run: runRegisterCounterparty},
	"adjust":                {summary: "ajuste de stock (cantidad con signo)", flags: adjustFlags, run: runAdjust},
	"login-attempt":         {summary: "registra un intento de inicio de sesión", flags: loginFlags, run: runLoginAttempt},
}

func noFlags(*pflag.FlagSet) opts { return opts{} }

func role(env *environment) entity.Role { return env.role }

// ── import ────────────────────────────────────────────────────────────────────

func runImport(ctx context.Context, env *environment, _ opts, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: import requiere al menos una ruta", errUsage)
	}
	sources := make([]ingestion.Source, 0, len(args))
	for _, p := range args {
		sources = append(sources, ingestion.PathSource(p))
	}
	summary, err := env.importer.Import(ctx, role(env), sources...)
	fmt.Fprintf(out, "importados: %d  duplicados: %d  rechazados: %d\n", summary.Imported, summary.Duplicates, summary.Failed)
	for _, f := range summary.Failures {
		fmt.Fprintf(out, "  %s: %s\n", f.Source, f.Reason)
	}
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return errPartial
	}
	return nil
}

// ── stock ─────────────────────────────────────────────────────────────────────

func stockFlags(fs *pflag.FlagSet) opts {
	return opts{
		"verify": fs.Bool("verify", false, "compara la proyección con el replay del ledger"),
		"export": fs.String("export", "", "archivo de salida (.csv, .xlsx o .pdf)"),
	}
}

func runStock(ctx context.Context, env *environment, o opts, _ []string, out io.Writer) error {
	if *o["verify"].(*bool) {
		drift, err := env.stock.Verify(ctx)
		if err != nil {
			return err
		}
		if len(drift) == 0 {
			fmt.Fprintln(out, "proyección consistente con el ledger")
			return nil
		}
		return emit(out, "", driftTable(drift))
	}
	rows, err := env.stock.CurrentStock(ctx)
	if err != nil {
		return err
	}
	return emit(out, *o["export"].(*string), reports.StockTable(rows))
}

func runRebuild(ctx context.Context, env *environment, _ opts, _ []string, out io.Writer) error {
	fixed, err := env.stock.Rebuild(ctx, role(env))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "productos corregidos: %d\n", len(fixed))
	if len(fixed) > 0 {
		return emit(out, "", driftTable(fixed))
	}
	return nil
}

func driftTable(drift []entity.StockDrift) reports.Table {
	t := reports.Table{
		Title:   "Divergências de estoque",
		Headers: []string{"Código", "Projetado", "Ledger"},
		Numeric: []bool{false, true, true},
	}
	for _, d := range drift {
		t.Rows = append(t.Rows, []string{d.ProductCode, d.Projected.String(), d.Replayed.String()})
	}
	return t
}

// ── reportes ──────────────────────────────────────────────────────────────────

func financialFlags(fs *pflag.FlagSet) opts {
	return opts{
		"from":   fs.String("from", "", "fecha inicial YYYY-MM-DD (inclusive)"),
		"to":     fs.String("to", "", "fecha final YYYY-MM-DD (inclusive)"),
		"export": fs.String("export", "", "archivo de salida (.csv, .xlsx o .pdf)"),
	}
}

func runFinancial(ctx context.Context, env *environment, o opts, _ []string, out io.Writer) error {
	from, err := requiredDate(*o["from"].(*string), "from")
	if err != nil {
		return err
	}
	to, err := requiredDate(*o["to"].(*string), "to")
	if err != nil {
		return err
	}
	summary, err := env.reports.FinancialSummary(ctx, from, to)
	if err != nil {
		return err
	}
	return emit(out, *o["export"].(*string), reports.FinancialTable(summary))
}

func documentFlags(fs *pflag.FlagSet) opts {
	return historyFlags(fs)
}

func runDocuments(ctx context.Context, env *environment, o opts, _ []string, out io.Writer) error {
	mf, err := movementFilter(ctx, env, o)
	if err != nil {
		return err
	}
	docs, err := env.reports.DocumentHistory(ctx, entity.DocumentFilter{
		DateFrom:       mf.DateFrom,
		DateTo:         mf.DateTo,
		Direction:      mf.Direction,
		ProductCode:    mf.ProductCode,
		CounterpartyID: mf.CounterpartyID,
	})
	if err != nil {
		return err
	}
	return emit(out, *o["export"].(*string), reports.DocumentTable(docs))
}

func documentItemsFlags(fs *pflag.FlagSet) opts {
	return opts{
		"seq":         fs.Int64("seq", 0, "número de secuencia del documento"),
		"fingerprint": fs.String("fingerprint", "", "huella SHA-256 del documento"),
		"export":      fs.String("export", "", "archivo de salida (.csv, .xlsx o .pdf)"),
	}
}

func runDocumentItems(ctx context.Context, env *environment, o opts, _ []string, out io.Writer) error {
	seq, fingerprint := *o["seq"].(*int64), *o["fingerprint"].(*string)
	var (
		movs []*entity.Movement
		err  error
	)
	switch {
	case seq > 0 && fingerprint == "":
		movs, err = env.reports.DocumentItems(ctx, seq)
	case seq == 0 && fingerprint != "":
		_, movs, err = env.reports.DocumentItemsByFingerprint(ctx, strings.ToLower(fingerprint))
	default:
		return fmt.Errorf("%w: indique --seq o --fingerprint (solo uno)", errUsage)
	}
	if err != nil {
		return err
	}
	return emit(out, *o["export"].(*string), reports.MovementTable(movs))
}

func historyFlags(fs *pflag.FlagSet) opts {
	return opts{
		"from":         fs.String("from", "", "fecha inicial YYYY-MM-DD"),
		"to":           fs.String("to", "", "fecha final YYYY-MM-DD"),
		"direction":    fs.String("direction", "", "IN u OUT"),
		"product":      fs.String("product", "", "código de producto"),
		"counterparty": fs.String("counterparty", "", "CNPJ/CPF de la contraparte"),
		"export":       fs.String("export", "", "archivo de salida (.csv, .xlsx o .pdf)"),
	}
}

func runHistory(ctx context.Context, env *environment, o opts, _ []string, out io.Writer) error {
	filter, err := movementFilter(ctx, env, o)
	if err != nil {
		return err
	}
	movs, err := env.reports.MovementHistory(ctx, filter)
	if err != nil {
		return err
	}
	return emit(out, *o["export"].(*string), reports.MovementTable(movs))
}

// movementFilter lee los filtros comunes de history y documents.
func movementFilter(ctx context.Context, env *environment, o opts) (entity.MovementFilter, error) {
	var (
		filter entity.MovementFilter
		err    error
	)
	if filter.DateFrom, err = optionalDate(*o["from"].(*string), "from"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = optionalDate(*o["to"].(*string), "to"); err != nil {
		return filter, err
	}
	if d := strings.ToUpper(*o["direction"].(*string)); d != "" {
		dir := entity.Direction(d)
		filter.Direction = &dir
	}
	if p := *o["product"].(*string); p != "" {
		filter.ProductCode = &p
	}
	if taxID := *o["counterparty"].(*string); taxID != "" {
		party, err := env.store.parties.GetByTaxID(ctx, taxid.Normalize(taxID))
		if err != nil {
			return filter, err
		}
		filter.CounterpartyID = &party.ID
	}
	return filter, nil
}

func accessLogFlags(fs *pflag.FlagSet) opts {
	return opts{
		"from":    fs.String("from", "", "desde (RFC3339 o YYYY-MM-DD)"),
		"to":      fs.String("to", "", "hasta (RFC3339 o YYYY-MM-DD)"),
		"user":    fs.String("user", "", "nombre de usuario"),
		"success": fs.String("success", "", "true o false"),
		"limit":   fs.Int("limit", 0, "máximo de filas (0 = sin límite)"),
		"export":  fs.String("export", "", "archivo de salida (.csv, .xlsx o .pdf)"),
	}
}

func runAccessLog(ctx context.Context, env *environment, o opts, _ []string, out io.Writer) error {
	var (
		filter entity.AccessLogFilter
		err    error
	)
	if filter.From, err = optionalInstant(*o["from"].(*string), "from"); err != nil {
		return err
	}
	if filter.To, err = optionalInstant(*o["to"].(*string), "to"); err != nil {
		return err
	}
	if u := *o["user"].(*string); u != "" {
		filter.Username = &u
	}
	switch s := strings.ToLower(*o["success"].(*string)); s {
	case "":
	case "true", "false":
		ok := s == "true"
		filter.Success = &ok
	default:
		return fmt.Errorf("%w: --success debe ser true o false", errUsage)
	}
	filter.Limit = *o["limit"].(*int)

	entries, err := env.accessLog.QueryAttempts(ctx, role(env), filter)
	if err != nil {
		return err
	}
	return emit(out, *o["export"].(*string), reports.AccessLogTable(entries))
}

// ── operaciones manuales ──────────────────────────────────────────────────────

func productFlags(fs *pflag.FlagSet) opts {
	return opts{
		"code":        fs.String("code", "", "código del producto"),
		"description": fs.String("description", "", "descripción"),
		"quantity":    fs.String("quantity", "0", "cantidad inicial"),
		"unit-value":  fs.String("unit-value", "0", "valor unitario de la cantidad inicial"),
	}
}

func runRegisterProduct(ctx context.Context, env *environment, o opts, _ []string, out io.Writer) error {
	qty, err := decimalFlag(*o["quantity"].(*string), "quantity")
	if err != nil {
		return err
	}
	unit, err := decimalFlag(*o["unit-value"].(*string), "unit-value")
	if err != nil {
		return err
	}
	p, err := env.ledger.RegisterProduct(ctx, role(env), dto.RegisterProductInput{
		Code:            *o["code"].(*string),
		Description:     *o["description"].(*string),
		InitialQuantity: qty,
		UnitValue:       unit,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\t%s\t%s\n", p.Code, p.Description, p.CurrentQuantity.String())
	return nil
}

func counterpartyFlags(fs *pflag.FlagSet) opts {
	return opts{
		"tax-id": fs.String("tax-id", "", "CNPJ o CPF"),
		"name":   fs.String("name", "", "razón social o nombre"),
	}
}

func runRegisterCounterparty(ctx context.Context, env *environment, o opts, _ []string, out io.Writer) error {
	c, err := env.ledger.RegisterCounterparty(ctx, role(env), dto.RegisterCounterpartyInput{
		TaxID: *o["tax-id"].(*string),
		Name:  *o["name"].(*string),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\t%s\t%s\n", c.ID, c.TaxID, c.Name)
	return nil
}

func adjustFlags(fs *pflag.FlagSet) opts {
	return opts{
		"product":     fs.String("product", "", "código del producto"),
		"description": fs.String("description", "", "descripción (opcional)"),
		"quantity":    fs.String("quantity", "", "cantidad con signo: positiva entra, negativa sale"),
		"unit-value":  fs.String("unit-value", "0", "valor unitario"),
		"date":        fs.String("date", "", "fecha YYYY-MM-DD (por defecto hoy)"),
	}
}

func runAdjust(ctx context.Context, env *environment, o opts, _ []string, out io.Writer) error {
	qty, err := decimalFlag(*o["quantity"].(*string), "quantity")
	if err != nil {
		return err
	}
	unit, err := decimalFlag(*o["unit-value"].(*string), "unit-value")
	if err != nil {
		return err
	}
	date, err := optionalDate(*o["date"].(*string), "date")
	if err != nil {
		return err
	}
	in := dto.AdjustmentInput{
		ProductCode: *o["product"].(*string),
		Description: *o["description"].(*string),
		Quantity:    qty,
		UnitValue:   unit,
	}
	if date != nil {
		in.Date = *date
	}
	applied, err := env.ledger.Adjust(ctx, role(env), in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ajuste aplicado: documento %d (%s)\n", applied.Document.Seq, applied.Document.Direction)
	return nil
}

func loginFlags(fs *pflag.FlagSet) opts {
	return opts{
		"user":    fs.String("user", "", "nombre de usuario"),
		"success": fs.Bool("success", false, "el intento fue exitoso"),
	}
}

func runLoginAttempt(ctx context.Context, env *environment, o opts, _ []string, out io.Writer) error {
	if err := env.accessLog.RecordAttempt(ctx, *o["user"].(*string), *o["success"].(*bool)); err != nil {
		return err
	}
	fmt.Fprintln(out, "intento registrado")
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func requiredDate(s, name string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: --%s es obligatorio", errUsage, name)
	}
	d, err := time.Parse(fiscal.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --%s %q no es YYYY-MM-DD", errUsage, name, s)
	}
	return d, nil
}

func optionalDate(s, name string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := requiredDate(s, name)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// optionalInstant acepta RFC3339 o una fecha; "--to" con fecha cubre el día completo.
func optionalInstant(s, name string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	d, err := requiredDate(s, name)
	if err != nil {
		return nil, err
	}
	if name == "to" {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return &d, nil
}

func decimalFlag(s, name string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: --%s es obligatorio", errUsage, name)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: --%s %q no es numérico", errUsage, name, s)
	}
	return d, nil
}

// emit exporta a archivo si path no está vacío; si no, imprime la tabla alineada.
func emit(out io.Writer, path string, t reports.Table) error {
	if path != "" {
		if err := export.WriteFile(path, t); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d fila(s) exportadas a %s\n", t.Title, len(t.Rows), path)
		return nil
	}
	return printTable(out, t)
}
