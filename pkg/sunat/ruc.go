package sunat

import (
	"fmt"
	"unicode"
)

// pesos del módulo 11 SUNAT, aplicados a los 10 primeros dígitos del RUC.
var rucWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// ValidateRUCFormat valida que el RUC tenga 11 dígitos y un prefijo de contribuyente válido
// (10 persona natural, 15/16/17 no domiciliados y otros, 20 persona jurídica).
func ValidateRUCFormat(ruc string) error {
	if len(ruc) != 11 {
		return fmt.Errorf("sunat: RUC debe tener 11 dígitos, se recibieron %d", len(ruc))
	}
	for _, r := range ruc {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("sunat: RUC solo admite dígitos: %q", ruc)
		}
	}
	switch ruc[:2] {
	case "10", "15", "16", "17", "20":
		return nil
	default:
		return fmt.Errorf("sunat: prefijo de RUC inválido %q", ruc[:2])
	}
}

// ValidateRUCCheckDigit valida formato y dígito verificador (módulo 11).
func ValidateRUCCheckDigit(ruc string) error {
	if err := ValidateRUCFormat(ruc); err != nil {
		return err
	}
	expected, err := ComputeRUCCheckDigit(ruc[:10])
	if err != nil {
		return err
	}
	if ruc[10] != expected {
		return fmt.Errorf("sunat: dígito verificador del RUC inválido: esperado %c, recibido %c", expected, ruc[10])
	}
	return nil
}

// ComputeRUCCheckDigit calcula el dígito verificador para los 10 primeros dígitos del RUC.
func ComputeRUCCheckDigit(base string) (byte, error) {
	if len(base) < 10 {
		return 0, fmt.Errorf("sunat: se requieren 10 dígitos para calcular el verificador, se recibieron %d", len(base))
	}
	var sum int
	for i := 0; i < 10; i++ {
		c := base[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("sunat: carácter no numérico en RUC: %q", c)
		}
		sum += int(c-'0') * rucWeights[i]
	}
	digit := 11 - sum%11
	switch digit {
	case 10:
		digit = 0
	case 11:
		digit = 1
	}
	return byte('0' + digit), nil
}
