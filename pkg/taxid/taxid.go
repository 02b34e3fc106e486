// Package taxid normaliza y valida identificaciones fiscales brasileñas (CNPJ y CPF)
// con el algoritmo módulo 11 de la Receita Federal.
package taxid

import (
	"fmt"
	"strings"
	"unicode"
)

// Kind tipo de identificación según la cantidad de dígitos.
type Kind string

const (
	KindCNPJ    Kind = "CNPJ" // 14 dígitos, persona jurídica
	KindCPF     Kind = "CPF"  // 11 dígitos, persona física
	KindForeign Kind = "EXTRANJERO"
)

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cpfWeights1  = []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	cpfWeights2  = []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Normalize quita puntos, barras, guiones y espacios. "11.222.333/0001-81" -> "11222333000181".
// Si el valor contiene letras (idEstrangeiro) se devuelve sin espacios y en mayúsculas.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if hasLetter {
		return strings.ToUpper(strings.Join(strings.Fields(s), ""))
	}
	return string(extractDigits(s))
}

// KindOf clasifica una identificación ya normalizada.
func KindOf(normalized string) Kind {
	switch {
	case len(normalized) == 14 && allDigits(normalized):
		return KindCNPJ
	case len(normalized) == 11 && allDigits(normalized):
		return KindCPF
	default:
		return KindForeign
	}
}

// Validate verifica los dígitos de control de un CNPJ o CPF (con o sin máscara).
func Validate(taxID string) error {
	digits := extractDigits(taxID)
	switch len(digits) {
	case 14:
		return checkDigits(digits, cnpjWeights1, cnpjWeights2, "CNPJ")
	case 11:
		return checkDigits(digits, cpfWeights1, cpfWeights2, "CPF")
	default:
		return fmt.Errorf("taxid: se esperan 11 (CPF) o 14 (CNPJ) dígitos, se encontraron %d", len(digits))
	}
}

func checkDigits(digits []byte, w1, w2 []int, label string) error {
	if repeated(digits) {
		return fmt.Errorf("taxid: %s con todos los dígitos iguales", label)
	}
	n := len(w1)
	if d := verifier(digits[:n], w1); digits[n] != d {
		return fmt.Errorf("taxid: primer dígito de control del %s inválido: esperado %c, recibido %c", label, d, digits[n])
	}
	if d := verifier(digits[:n+1], w2); digits[n+1] != d {
		return fmt.Errorf("taxid: segundo dígito de control del %s inválido: esperado %c, recibido %c", label, d, digits[n+1])
	}
	return nil
}

func verifier(base []byte, weights []int) byte {
	var sum int
	for i, d := range base {
		sum += int(d-'0') * weights[i]
	}
	remainder := sum % 11
	if remainder < 2 {
		return '0'
	}
	return byte('0' + (11 - remainder))
}

func repeated(digits []byte) bool {
	for _, d := range digits[1:] {
		if d != digits[0] {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, byte(r))
		}
	}
	return out
}
