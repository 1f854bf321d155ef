package sunat

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Leyenda catálogo 52: monto en letras.
const LegendAmountInWords = "1000"

var (
	units = []string{"", "UNO", "DOS", "TRES", "CUATRO", "CINCO", "SEIS", "SIETE", "OCHO", "NUEVE",
		"DIEZ", "ONCE", "DOCE", "TRECE", "CATORCE", "QUINCE", "DIECISEIS", "DIECISIETE", "DIECIOCHO", "DIECINUEVE",
		"VEINTE", "VEINTIUNO", "VEINTIDOS", "VEINTITRES", "VEINTICUATRO", "VEINTICINCO", "VEINTISEIS",
		"VEINTISIETE", "VEINTIOCHO", "VEINTINUEVE"}
	tens     = []string{"", "", "", "TREINTA", "CUARENTA", "CINCUENTA", "SESENTA", "SETENTA", "OCHENTA", "NOVENTA"}
	hundreds = []string{"", "CIENTO", "DOSCIENTOS", "TRESCIENTOS", "CUATROCIENTOS", "QUINIENTOS",
		"SEISCIENTOS", "SETECIENTOS", "OCHOCIENTOS", "NOVECIENTOS"}
)

var currencyNames = map[string]string{
	"PEN": "SOLES",
	"USD": "DÓLARES AMERICANOS",
	"EUR": "EUROS",
}

// AmountInWords "CIENTO DIECIOCHO CON 00/100 SOLES".
func AmountInWords(amount decimal.Decimal, currency string) string {
	amount = amount.Abs().Round(2)
	integer := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(integer)).Mul(decimal.NewFromInt(100)).IntPart()

	words := "CERO"
	if integer > 0 {
		words = integerToWords(integer)
	}
	name, ok := currencyNames[currency]
	if !ok {
		name = currency
	}
	return words + " CON " + twoDigits(cents) + "/100 " + name
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

func integerToWords(n int64) string {
	var parts []string
	if millions := n / 1_000_000; millions > 0 {
		if millions == 1 {
			parts = append(parts, "UN MILLON")
		} else {
			parts = append(parts, apocope(integerToWords(millions))+" MILLONES")
		}
		n %= 1_000_000
	}
	if thousands := n / 1000; thousands > 0 {
		if thousands == 1 {
			parts = append(parts, "MIL")
		} else {
			parts = append(parts, apocope(below1000(thousands))+" MIL")
		}
		n %= 1000
	}
	if n > 0 {
		parts = append(parts, below1000(n))
	}
	return strings.Join(parts, " ")
}

func below1000(n int64) string {
	if n == 100 {
		return "CIEN"
	}
	var parts []string
	if h := n / 100; h > 0 {
		parts = append(parts, hundreds[h])
	}
	rest := n % 100
	switch {
	case rest == 0:
	case rest < 30:
		parts = append(parts, units[rest])
	default:
		t := tens[rest/10]
		if u := rest % 10; u > 0 {
			t += " Y " + units[u]
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}

// apocope "VEINTIUNO MIL" -> "VEINTIUN MIL", "UNO" -> "UN".
func apocope(s string) string {
	if strings.HasSuffix(s, "VEINTIUNO") {
		return strings.TrimSuffix(s, "VEINTIUNO") + "VEINTIUN"
	}
	if strings.HasSuffix(s, "UNO") {
		return strings.TrimSuffix(s, "UNO") + "UN"
	}
	return s
}
