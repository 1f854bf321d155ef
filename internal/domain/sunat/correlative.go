package sunat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// FirstCorrelative correlativo inicial de una serie sin emisiones.
const FirstCorrelative = "001"

// NextCorrelative devuelve last+1 con relleno de ceros a 3 dígitos como mínimo.
// Un last vacío devuelve "001".
func NextCorrelative(last string) (string, error) {
	last = strings.TrimSpace(last)
	if last == "" {
		return FirstCorrelative, nil
	}
	n, err := strconv.ParseUint(last, 10, 64)
	if err != nil {
		return "", fmt.Errorf("correlativo almacenado no numérico %q: %w", last, err)
	}
	return fmt.Sprintf("%03d", n+1), nil
}

// ResolveSeries elige la serie: la solicitada, la última usada, o la serie por defecto del tipo.
func ResolveSeries(requested, lastUsed, documentType string) string {
	if s := strings.ToUpper(strings.TrimSpace(requested)); s != "" {
		return s
	}
	if lastUsed != "" {
		return lastUsed
	}
	return sunat.DefaultSeries[documentType]
}

// FileStem nombre base del XML y del ZIP: {ruc}-{tipo}-{serie}-{correlativo}.
func FileStem(ruc, docTypeCode, series, correlative string) string {
	return ruc + "-" + docTypeCode + "-" + series + "-" + correlative
}
