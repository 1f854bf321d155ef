package sunat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

const (
	soapNS        = "http://schemas.xmlsoap.org/soap/envelope/"
	soapNSService = "http://service.sunat.gob.pe"
	soapNSWsse    = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"

	// maxResponseSize límite de lectura de respuestas SUNAT.
	maxResponseSize = 1 << 20
)

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName   xml.Name   `xml:"soapenv:Envelope"`
	XmlnsS    string     `xml:"xmlns:soapenv,attr"`
	XmlnsSer  string     `xml:"xmlns:ser,attr"`
	XmlnsWsse string     `xml:"xmlns:wsse,attr"`
	Header    soapHeader `xml:"soapenv:Header"`
	Body      soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct {
	Security wsseSecurity `xml:"wsse:Security"`
}

type wsseSecurity struct {
	Username string `xml:"wsse:UsernameToken>wsse:Username"`
	Password string `xml:"wsse:UsernameToken>wsse:Password"`
}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// sendBillBody operación sendBill del billService.
type sendBillBody struct {
	XMLName     xml.Name `xml:"ser:sendBill"`
	FileName    string   `xml:"fileName"`
	ContentFile string   `xml:"contentFile"` // ZIP en Base64
}

// ── Estructuras de respuesta SOAP ─────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	SendBillResponse *sendBillResponse `xml:"sendBillResponse"`
	Fault            *soapFault        `xml:"Fault"`
}

type sendBillResponse struct {
	ApplicationResponse string `xml:"applicationResponse"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
	Detail      string `xml:"detail>message"`
}

// SOAPClient cliente del billService SUNAT (sendBill síncrono).
type SOAPClient struct {
	httpClient *http.Client
	guard      *DestinationGuard
}

// NewSOAPClient construye el cliente; guard valida el destino antes de cada envío.
func NewSOAPClient(httpClient *http.Client, guard *DestinationGuard) *SOAPClient {
	return &SOAPClient{httpClient: httpClient, guard: guard}
}

// SendBill envía el ZIP con Basic Auth (usuario SOL) y UsernameToken WS-Security.
// Un SOAP Fault o un HTTP no-2xx devuelven TransmissionError con el cuerpo crudo.
func (c *SOAPClient) SendBill(ctx context.Context, archive *entity.ArchiveEntry, endpoint string, username, password string) (*entity.RawResponse, error) {
	if err := c.guard.Check(ctx, endpoint); err != nil {
		return nil, err
	}

	envelope := soapEnvelope{
		XmlnsS:    soapNS,
		XmlnsSer:  soapNSService,
		XmlnsWsse: soapNSWsse,
		Header:    soapHeader{Security: wsseSecurity{Username: username, Password: password}},
		Body: soapBody{Content: &sendBillBody{
			FileName:    archive.FileName,
			ContentFile: base64.StdEncoding.EncodeToString(archive.Content),
		}},
	}
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, &domain.TransmissionError{Op: "sendBill", Err: fmt.Errorf("serializar envelope: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return nil, &domain.TransmissionError{Op: "sendBill", Err: fmt.Errorf("crear request: %w", err)}
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "urn:sendBill")
	req.SetBasicAuth(username, password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &domain.TransmissionError{Op: "sendBill", Err: fmt.Errorf("timeout o cancelación: %w", ctx.Err())}
		}
		return nil, unwrapBlocked(err, "sendBill")
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &domain.TransmissionError{Op: "sendBill", StatusCode: resp.StatusCode, Err: fmt.Errorf("leer respuesta: %w", err)}
	}
	return parseSOAPResponse(resp.StatusCode, rawBody)
}

func parseSOAPResponse(status int, body []byte) (*entity.RawResponse, error) {
	var env soapResponseEnvelope
	parseErr := xml.Unmarshal(body, &env)

	if parseErr == nil && env.Body.Fault != nil {
		f := env.Body.Fault
		msg := strings.TrimSpace(f.FaultString)
		if d := strings.TrimSpace(f.Detail); d != "" {
			msg += " (" + d + ")"
		}
		return nil, &domain.TransmissionError{
			Op:         "sendBill",
			StatusCode: status,
			FaultCode:  strings.TrimSpace(f.FaultCode),
			Body:       body,
			Err:        fmt.Errorf("SOAP Fault: %s", msg),
		}
	}
	if status < 200 || status > 299 {
		return nil, &domain.TransmissionError{Op: "sendBill", StatusCode: status, Body: body, Err: fmt.Errorf("respuesta no exitosa")}
	}
	if parseErr != nil {
		return nil, &domain.TransmissionError{Op: "sendBill", StatusCode: status, Body: body, Err: fmt.Errorf("respuesta SOAP ilegible: %w", parseErr)}
	}

	raw := &entity.RawResponse{Protocol: entity.ProtocolSOAP, StatusCode: status, Body: body}
	if env.Body.SendBillResponse != nil {
		raw.ApplicationResponse = strings.TrimSpace(env.Body.SendBillResponse.ApplicationResponse)
	}
	return raw, nil
}
