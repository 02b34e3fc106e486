// Package nfe convierte el XML de una NF-e (Nota Fiscal Eletrônica, layout 4.00 del
// Portal Fiscal) en un entity.ParsedDocument. El parser es puro: no toca almacenamiento
// ni reloj, y el mismo contenido produce siempre el mismo resultado.
package nfe

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/text/unicode/norm"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/fiscal"
	"github.com/ekk0s/nfe-ledger/pkg/taxid"
)

// Namespace del Portal Fiscal para todos los elementos de la NF-e.
const Namespace = "http://www.portalfiscal.inf.br/nfe"

// Valores de ide/tpNF.
const (
	tpNFEntrada = "0"
	tpNFSaida   = "1"
)

// Parser implementa el puerto de parsing usado por la ingesta.
type Parser struct{}

// NewParser construye el parser.
func NewParser() *Parser { return &Parser{} }

// Parse interpreta data como NF-e. Errores:
//   - domain.ErrMalformedDocument: no es XML bien formado o faltan campos obligatorios
//     (todos los problemas del documento se reportan juntos);
//   - domain.ErrUnsupportedSchema: XML válido sin infNFe en el namespace del Portal Fiscal.
func (p *Parser) Parse(data []byte) (*entity.ParsedDocument, error) {
	if err := wellFormed(data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: documento sin elemento raíz", domain.ErrMalformedDocument)
	}

	inf := findElement(doc.Root(), "infNFe")
	if inf == nil {
		return nil, fmt.Errorf("%w: elemento infNFe no encontrado (raíz %q)", domain.ErrUnsupportedSchema, doc.Root().Tag)
	}
	if ns := inf.NamespaceURI(); ns != Namespace {
		return nil, fmt.Errorf("%w: namespace %q no reconocido", domain.ErrUnsupportedSchema, ns)
	}

	ex := &extractor{}
	parsed := ex.document(inf)
	if len(ex.problems) > 0 {
		return nil, multierr.Combine(append([]error{domain.ErrMalformedDocument}, ex.problems...)...)
	}

	fp, err := fiscal.Fingerprint(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}
	parsed.Fingerprint = fp

	if err := fiscal.ValidateDocument(parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

// extractor acumula problemas mientras recorre infNFe.
type extractor struct {
	problems []error
}

func (x *extractor) fail(format string, args ...interface{}) {
	x.problems = append(x.problems, fmt.Errorf(format, args...))
}

func (x *extractor) document(inf *etree.Element) *entity.ParsedDocument {
	out := &entity.ParsedDocument{
		Kind:      entity.DocumentKindNFe,
		AccessKey: strings.TrimPrefix(clean(inf.SelectAttrValue("Id", "")), "NFe"),
	}

	ide := child(inf, "ide")
	if ide == nil {
		x.fail("ide: elemento obligatorio ausente")
	} else {
		out.Direction = x.direction(ide)
		out.IssueDate = x.issueDate(ide)
	}

	out.Counterparty = x.counterparty(inf, out.Direction)
	out.Lines = x.lines(inf)
	out.Total = x.total(inf, out.Lines)
	return out
}

func (x *extractor) direction(ide *etree.Element) entity.Direction {
	switch v := text(ide, "tpNF"); v {
	case tpNFEntrada:
		return entity.DirectionIn
	case tpNFSaida:
		return entity.DirectionOut
	case "":
		x.fail("ide/tpNF: obligatorio")
	default:
		x.fail("ide/tpNF: valor %q no reconocido", v)
	}
	return ""
}

// issueDate toma dhEmi (layout 3.10+) o dEmi (layout 2.00). La fecha de calendario es la
// del propio documento, en su huso horario declarado.
func (x *extractor) issueDate(ide *etree.Element) time.Time {
	raw := text(ide, "dhEmi")
	if raw == "" {
		raw = text(ide, "dEmi")
	}
	if raw == "" {
		x.fail("ide/dhEmi: obligatorio")
		return time.Time{}
	}
	d, err := ParseIssueDate(raw)
	if err != nil {
		x.fail("ide/dhEmi: %v", err)
		return time.Time{}
	}
	return d
}

// ParseIssueDate acepta RFC 3339, fecha-hora sin huso y fecha simple; devuelve medianoche UTC.
func ParseIssueDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", fiscal.DateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha %q no interpretable", raw)
}

// counterparty: en una entrada la contraparte es el emisor; en una salida, el destinatario.
func (x *extractor) counterparty(inf *etree.Element, dir entity.Direction) entity.CounterpartyRef {
	tag := "dest"
	if dir == entity.DirectionIn {
		tag = "emit"
	}
	if dir == "" {
		// sin dirección no se sabe cuál leer; el problema ya fue reportado
		return entity.CounterpartyRef{}
	}
	party := child(inf, tag)
	if party == nil {
		x.fail("%s: elemento obligatorio ausente", tag)
		return entity.CounterpartyRef{}
	}
	id := ""
	for _, field := range []string{"CNPJ", "CPF", "idEstrangeiro"} {
		if id = text(party, field); id != "" {
			break
		}
	}
	if id == "" {
		x.fail("%s: CNPJ/CPF obligatorio", tag)
	}
	return entity.CounterpartyRef{TaxID: taxid.Normalize(id), Name: text(party, "xNome")}
}

func (x *extractor) lines(inf *etree.Element) []entity.LineItem {
	var lines []entity.LineItem
	for _, det := range children(inf, "det") {
		n := det.SelectAttrValue("nItem", fmt.Sprint(len(lines)+1))
		prod := child(det, "prod")
		if prod == nil {
			x.fail("det[%s]/prod: elemento obligatorio ausente", n)
			continue
		}
		line := entity.LineItem{
			ProductCode: text(prod, "cProd"),
			Description: text(prod, "xProd"),
			Quantity:    x.decimalField(prod, "qCom", n),
			UnitValue:   x.decimalField(prod, "vUnCom", n),
		}
		if line.ProductCode == "" {
			x.fail("det[%s]/prod/cProd: obligatorio", n)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		x.fail("det: el documento no tiene líneas")
	}
	return lines
}

func (x *extractor) decimalField(prod *etree.Element, tag, n string) decimal.Decimal {
	raw := text(prod, tag)
	if raw == "" {
		x.fail("det[%s]/prod/%s: obligatorio", n, tag)
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		x.fail("det[%s]/prod/%s: valor %q no numérico", n, tag, raw)
		return decimal.Zero
	}
	if d.IsNegative() {
		x.fail("det[%s]/prod/%s: valor negativo %s", n, tag, raw)
	}
	return d
}

// total usa ICMSTot/vNF cuando existe; si no, la suma de las líneas.
func (x *extractor) total(inf *etree.Element, lines []entity.LineItem) decimal.Decimal {
	if tot := child(inf, "total"); tot != nil {
		if icms := child(tot, "ICMSTot"); icms != nil {
			if raw := text(icms, "vNF"); raw != "" {
				d, err := decimal.NewFromString(raw)
				if err != nil {
					x.fail("total/ICMSTot/vNF: valor %q no numérico", raw)
					return decimal.Zero
				}
				return d
			}
		}
	}
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// ── helpers de navegación ─────────────────────────────────────────────────────

// findElement busca en profundidad el primer elemento con el nombre local dado.
func findElement(el *etree.Element, tag string) *etree.Element {
	if el.Tag == tag {
		return el
	}
	for _, c := range el.ChildElements() {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func child(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func children(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

func text(el *etree.Element, tag string) string {
	c := child(el, tag)
	if c == nil {
		return ""
	}
	return clean(c.Text())
}

// clean recorta espacios y normaliza a NFC para que "Açúcar" compuesto y descompuesto coincidan.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
