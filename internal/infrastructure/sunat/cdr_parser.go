package sunat

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// AcceptedResponseCode código de CDR aceptado.
const AcceptedResponseCode = "0"

// ParseReceipt interpreta el CDR de la respuesta. Siempre devuelve un Receipt
// utilizable: si el CDR falta o es ilegible el Receipt queda no aceptado con
// los valores que se hayan podido extraer, y diag describe la falla (solo para log).
func ParseReceipt(raw *entity.RawResponse) (receipt entity.Receipt, diag error) {
	receipt = entity.UnknownReceipt()
	if raw == nil {
		return receipt, &domain.ReceiptParseError{Stage: "respuesta", Err: errors.New("respuesta vacía")}
	}

	encoded := strings.TrimSpace(raw.ApplicationResponse)
	if encoded == "" {
		if raw.Ticket != "" {
			receipt.Description = "ticket " + raw.Ticket + " pendiente de consulta"
		}
		return receipt, &domain.ReceiptParseError{Stage: "respuesta", Err: errors.New("sin applicationResponse")}
	}
	receipt.Raw = encoded

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return receipt, &domain.ReceiptParseError{Stage: "base64", Err: err}
	}

	// Algunos proxies devuelven el XML del CDR sin comprimir.
	xmlData := content
	if !looksLikeXML(content) {
		if _, xmlData, err = Unpack(content); err != nil {
			return receipt, &domain.ReceiptParseError{Stage: "zip", Err: err}
		}
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(xmlData); err != nil {
		return receipt, &domain.ReceiptParseError{Stage: "xml", Err: err}
	}
	root := doc.Root()
	if root == nil {
		return receipt, &domain.ReceiptParseError{Stage: "xml", Err: errors.New("documento sin raíz")}
	}

	if el := findByLocalName(root, "ResponseCode"); el != nil {
		if code := strings.TrimSpace(el.Text()); code != "" {
			receipt.Code = code
		}
	}
	if el := findByLocalName(root, "Description"); el != nil {
		if desc := strings.TrimSpace(el.Text()); desc != "" {
			receipt.Description = desc
		}
	}
	if el := findByLocalName(root, "ReferenceID"); el != nil {
		receipt.ReferenceID = strings.TrimSpace(el.Text())
	}
	for _, child := range root.ChildElements() {
		if child.Tag == "Note" {
			if n := strings.TrimSpace(child.Text()); n != "" {
				receipt.Notes = append(receipt.Notes, n)
			}
		}
	}

	receipt.Accepted = receipt.Code == AcceptedResponseCode
	if receipt.Code == entity.UnknownReceiptValue {
		return receipt, &domain.ReceiptParseError{Stage: "xml", Err: errors.New("CDR sin ResponseCode")}
	}
	return receipt, nil
}

// findByLocalName búsqueda en profundidad por nombre local, sin importar el prefijo.
func findByLocalName(e *etree.Element, local string) *etree.Element {
	for _, child := range e.ChildElements() {
		if child.Tag == local {
			return child
		}
		if found := findByLocalName(child, local); found != nil {
			return found
		}
	}
	return nil
}

func looksLikeXML(b []byte) bool {
	b = bytes.TrimLeft(b, " \t\r\n\ufeff")
	return len(b) > 0 && b[0] == '<'
}

// charsetReader los CDR de SUNAT suelen declarar ISO-8859-1.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "ISO-8859-1", "ISO8859-1", "LATIN1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	}
	return input, nil
}
