// Package fiscal: huella de contenido de documentos fiscales y validación estructural.
// La huella es SHA-256 sobre la forma canónica C14N de los campos que identifican el
// documento, de modo que espacios, indentación, orden de atributos y ceros decimales
// de relleno en el XML de origen no la alteran.
package fiscal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
)

// Formato de fecha de calendario usado en toda la aplicación.
const DateLayout = "2006-01-02"

// Fingerprint calcula la huella (hex, 64 caracteres) de un documento parseado.
// Incluye clave de acceso, tipo, dirección, fecha, contraparte y por línea código,
// cantidad y valor unitario en el orden del documento. La descripción no participa:
// renombrar un producto no crea un documento distinto.
func Fingerprint(doc *entity.ParsedDocument) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("fiscal: documento nulo")
	}
	raw, err := canonicalForm(doc).WriteToBytes()
	if err != nil {
		return "", fmt.Errorf("fiscal: serializar forma canónica: %w", err)
	}
	canonical, err := canonicalizeXML(raw)
	if err != nil {
		return "", fmt.Errorf("fiscal: canonicalizar: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalForm(doc *entity.ParsedDocument) *etree.Document {
	out := etree.NewDocument()
	root := out.CreateElement("documento")
	root.CreateAttr("chave", doc.AccessKey)
	root.CreateAttr("tipo", string(doc.Kind))
	root.CreateAttr("direcao", string(doc.Direction))
	root.CreateAttr("emissao", doc.IssueDate.Format(DateLayout))
	root.CreateAttr("contraparte", doc.Counterparty.TaxID)
	for i, l := range doc.Lines {
		item := root.CreateElement("item")
		item.CreateAttr("n", strconv.Itoa(i+1))
		item.CreateAttr("codigo", l.ProductCode)
		// String() elimina ceros a la derecha: 50.0000 y 50 producen la misma huella.
		item.CreateAttr("quantidade", l.Quantity.String())
		item.CreateAttr("valor", l.UnitValue.String())
	}
	return out
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}
