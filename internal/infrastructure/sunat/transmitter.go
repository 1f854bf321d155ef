package sunat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// EnvironmentEndpoints URLs de un ambiente SUNAT.
type EnvironmentEndpoints struct {
	BillServiceURL string // SOAP billService
	TokenURL       string // OAuth2; admite el marcador {clientId}
	CPEURL         string // REST comprobantes; admite el marcador {fileName}
	Scope          string
}

// EndpointDirectory URLs por ambiente y protocolo por tipo de documento.
type EndpointDirectory struct {
	Beta EnvironmentEndpoints
	Prod EnvironmentEndpoints
	// Protocols protocolo por código de tipo; los ausentes usan SOAP.
	Protocols map[string]entity.Protocol
}

// Endpoint destino resuelto para un envío.
type Endpoint struct {
	Environment entity.Environment
	Protocol    entity.Protocol
	URL         string
	TokenURL    string
	Scope       string
}

// Resolve elige protocolo y URLs según ambiente y tipo de documento.
func (d EndpointDirectory) Resolve(env entity.Environment, docTypeCode, fileStem string) (Endpoint, error) {
	var urls EnvironmentEndpoints
	switch env {
	case entity.EnvironmentBeta:
		urls = d.Beta
	case entity.EnvironmentProd:
		urls = d.Prod
	default:
		return Endpoint{}, fmt.Errorf("ambiente desconocido %q", env)
	}
	protocol := d.Protocols[docTypeCode]
	if protocol == "" {
		protocol = entity.ProtocolSOAP
	}
	ep := Endpoint{Environment: env, Protocol: protocol, Scope: urls.Scope}
	switch protocol {
	case entity.ProtocolSOAP:
		ep.URL = urls.BillServiceURL
	case entity.ProtocolREST:
		ep.URL = strings.ReplaceAll(urls.CPEURL, "{fileName}", url.PathEscape(fileStem))
		ep.TokenURL = urls.TokenURL
	}
	if ep.URL == "" {
		return Endpoint{}, fmt.Errorf("sin URL %s configurada para %s", protocol, env)
	}
	return ep, nil
}

// DefaultEndpointDirectory endpoints públicos SUNAT; la guía (09) usa REST.
func DefaultEndpointDirectory() EndpointDirectory {
	return EndpointDirectory{
		Beta: EnvironmentEndpoints{
			BillServiceURL: "https://e-beta.sunat.gob.pe/ol-ti-itcpfegem-beta/billService",
			TokenURL:       "https://gre-test.nubefact.com/v1/clientessol/{clientId}/oauth2/token",
			CPEURL:         "https://gre-test.nubefact.com/v1/contribuyente/gem/comprobantes/{fileName}",
			Scope:          "https://api-cpe.sunat.gob.pe",
		},
		Prod: EnvironmentEndpoints{
			BillServiceURL: "https://e-factura.sunat.gob.pe/ol-ti-itcpfegem/billService",
			TokenURL:       "https://api-seguridad.sunat.gob.pe/v1/clientessol/{clientId}/oauth2/token/",
			CPEURL:         "https://api-cpe.sunat.gob.pe/v1/contribuyente/gem/comprobantes/{fileName}",
			Scope:          "https://api-cpe.sunat.gob.pe",
		},
		Protocols: map[string]entity.Protocol{sunat.DocTypeDispatchAdvice: entity.ProtocolREST},
	}
}

// Transmitter envía el ZIP por el protocolo del Endpoint. No reintenta.
type Transmitter struct {
	soap *SOAPClient
	rest *RESTClient
}

// NewTransmitter compone los dos clientes.
func NewTransmitter(soap *SOAPClient, rest *RESTClient) *Transmitter {
	return &Transmitter{soap: soap, rest: rest}
}

// Send despacha según dest.Protocol con las credenciales del ambiente resuelto.
func (t *Transmitter) Send(ctx context.Context, archive *entity.ArchiveEntry, dest Endpoint, creds *entity.Credentials) (*entity.RawResponse, error) {
	if archive == nil {
		return nil, &domain.TransmissionError{Op: "send", Err: fmt.Errorf("archivo vacío")}
	}
	if creds == nil {
		return nil, &domain.CredentialsError{Environment: string(dest.Environment)}
	}
	switch dest.Protocol {
	case entity.ProtocolSOAP:
		return t.soap.SendBill(ctx, archive, dest.URL, creds.SolUser, creds.SolPassword)
	case entity.ProtocolREST:
		if !creds.HasOAuthClient() {
			return nil, &domain.CredentialsError{
				CompanyID:   creds.CompanyID,
				Environment: string(creds.Environment),
				Err:         errors.New("falta client_id/client_secret para la API REST"),
			}
		}
		return t.rest.Send(ctx, archive, dest.TokenURL, dest.URL, dest.Scope, RESTCredentials{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Username:     creds.SolUser,
			Password:     creds.SolPassword,
		})
	default:
		return nil, &domain.TransmissionError{Op: "send", Err: fmt.Errorf("protocolo desconocido %q", dest.Protocol)}
	}
}

// NewHTTPClient cliente con timeout y validación de IP al conectar.
func NewHTTPClient(timeout time.Duration, guard *DestinationGuard) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if guard != nil {
		dialer.Control = guard.Control
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	return &http.Client{Timeout: timeout, Transport: transport}
}

func unwrapBlocked(err error, op string) error {
	var blocked *domain.BlockedDestinationError
	if errors.As(err, &blocked) {
		return blocked
	}
	return &domain.TransmissionError{Op: op, Err: err}
}
