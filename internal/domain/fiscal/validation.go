package fiscal

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// decimal.Decimal se compara como float64 en reglas gte/lte; la precisión exacta se usa en el resto del dominio.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validator devuelve la instancia compartida (segura para uso concurrente).
func Validator() *validator.Validate { return validate }

// ValidateDocument valida estructura e invariantes de un ParsedDocument.
// Todos los problemas se reportan juntos envueltos en domain.ErrMalformedDocument.
func ValidateDocument(doc *entity.ParsedDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: documento nulo", domain.ErrMalformedDocument)
	}
	var problems []error
	if err := validate.Struct(doc); err != nil {
		problems = append(problems, fieldProblems(err)...)
	}
	if doc.Kind == entity.DocumentKindNFe && strings.TrimSpace(doc.Counterparty.TaxID) == "" {
		problems = append(problems, fmt.Errorf("contraparte: identificación fiscal obligatoria"))
	}
	if len(problems) > 0 {
		return multierr.Combine(append([]error{domain.ErrMalformedDocument}, problems...)...)
	}
	return nil
}

// ValidateStruct valida cualquier entrada con etiquetas validate y la envuelve en domain.ErrInvalidInput.
func ValidateStruct(in interface{}) error {
	if err := validate.Struct(in); err != nil {
		return multierr.Combine(append([]error{domain.ErrInvalidInput}, fieldProblems(err)...)...)
	}
	return nil
}

func fieldProblems(err error) []error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []error{err}
	}
	out := make([]error, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fmt.Errorf("%s: %s", fieldPath(fe), validationMessage(fe)))
	}
	return out
}

// fieldPath quita el nombre del struct raíz: "ParsedDocument.Lines[0].Quantity" -> "Lines[0].Quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "min":
		return fmt.Sprintf("debe tener al menos %s elemento(s)", fe.Param())
	case "max":
		return fmt.Sprintf("supera el máximo de %s", fe.Param())
	case "len":
		return fmt.Sprintf("debe tener longitud %s", fe.Param())
	case "gte":
		return fmt.Sprintf("debe ser mayor o igual a %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("debe ser uno de [%s]", fe.Param())
	case "hexadecimal":
		return "debe ser hexadecimal"
	}
	return "es inválido"
}
