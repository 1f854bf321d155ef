package sunat

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// tokenSafetyMargin se descuenta del expires_in para no usar tokens a punto de vencer.
const tokenSafetyMargin = 60 * time.Second

// tokenFetchTimeout límite de la llamada compartida al endpoint de identidad.
const tokenFetchTimeout = 30 * time.Second

// RESTCredentials datos del password grant.
type RESTCredentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type restSendRequest struct {
	Archivo       string `json:"archivo"`
	NombreArchivo string `json:"nombreArchivo"`
}

// restSendResponse campos conocidos de la respuesta de comprobantes.
type restSendResponse struct {
	ApplicationResponse string `json:"applicationResponse"`
	ArcCdr              string `json:"arcCdr"`
	NumTicket           string `json:"numTicket"`
}

// RESTClient cliente de la API REST SUNAT (OAuth2 password grant + JSON).
type RESTClient struct {
	httpClient *http.Client
	guard      *DestinationGuard
	cache      TokenCache
	group      singleflight.Group
	log        zerolog.Logger
}

// NewRESTClient construye el cliente. cache nil usa una cache en memoria.
func NewRESTClient(httpClient *http.Client, guard *DestinationGuard, cache TokenCache, log zerolog.Logger) *RESTClient {
	if cache == nil {
		cache = NewMemoryTokenCache()
	}
	return &RESTClient{httpClient: httpClient, guard: guard, cache: cache, log: log}
}

// Send obtiene el token y publica {archivo, nombreArchivo} con Authorization: Bearer.
// Si SUNAT rechaza el token (401/403) se descarta de la cache y se reintenta una vez
// con uno nuevo.
func (c *RESTClient) Send(ctx context.Context, archive *entity.ArchiveEntry, tokenURL, documentURL, scope string, creds RESTCredentials) (*entity.RawResponse, error) {
	if err := c.guard.Check(ctx, documentURL); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(restSendRequest{
		Archivo:       base64.StdEncoding.EncodeToString(archive.Content),
		NombreArchivo: archive.FileName,
	})
	if err != nil {
		return nil, &domain.TransmissionError{Op: "comprobantes", Err: err}
	}

	key := tokenKey(tokenURL, scope, creds)
	var status int
	var body []byte
	for attempt := 0; ; attempt++ {
		token, err := c.Token(ctx, tokenURL, scope, creds)
		if err != nil {
			return nil, err
		}
		status, body, err = c.post(ctx, documentURL, token, payload)
		if err == nil {
			break
		}
		if attempt > 0 || (status != http.StatusUnauthorized && status != http.StatusForbidden) {
			return nil, err
		}
		c.log.Warn().Int("status", status).Msg("[SUNAT] token rechazado, se solicita uno nuevo")
		if derr := c.cache.Delete(ctx, key); derr != nil {
			c.log.Warn().Err(derr).Msg("[SUNAT] no se pudo descartar el token en cache")
		}
	}

	raw := &entity.RawResponse{Protocol: entity.ProtocolREST, StatusCode: status, Body: body}
	var parsed restSendResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		raw.ApplicationResponse = parsed.ApplicationResponse
		if raw.ApplicationResponse == "" {
			raw.ApplicationResponse = parsed.ArcCdr
		}
		raw.Ticket = parsed.NumTicket
	}
	return raw, nil
}

func (c *RESTClient) post(ctx context.Context, documentURL, token string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, documentURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, &domain.TransmissionError{Op: "comprobantes", Err: fmt.Errorf("crear request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req, "comprobantes")
}

// Token devuelve un access_token vigente. Las solicitudes concurrentes para las
// mismas credenciales comparten una sola llamada al endpoint de identidad; la
// llamada compartida no depende del contexto de quien la inició.
func (c *RESTClient) Token(ctx context.Context, tokenURL, scope string, creds RESTCredentials) (string, error) {
	key := tokenKey(tokenURL, scope, creds)
	if tok, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warn().Err(err).Msg("[SUNAT] cache de token no disponible, se solicita uno nuevo")
	} else if ok {
		return tok, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenFetchTimeout)
		defer cancel()
		tok, ttl, err := c.fetchToken(fetchCtx, tokenURL, scope, creds)
		if err != nil {
			return "", err
		}
		if err := c.cache.Set(fetchCtx, key, tok, ttl); err != nil {
			c.log.Warn().Err(err).Msg("[SUNAT] no se pudo guardar el token en cache")
		}
		return tok, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &domain.TransmissionError{Op: "token", Err: fmt.Errorf("timeout o cancelación: %w", ctx.Err())}
	}
}

func (c *RESTClient) fetchToken(ctx context.Context, tokenURL, scope string, creds RESTCredentials) (string, time.Duration, error) {
	endpoint := strings.ReplaceAll(tokenURL, "{clientId}", url.PathEscape(creds.ClientID))
	if err := c.guard.Check(ctx, endpoint); err != nil {
		return "", 0, err
	}
	form := url.Values{
		"grant_type":    {"password"},
		"scope":         {scope},
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"username":      {creds.Username},
		"password":      {creds.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, &domain.TransmissionError{Op: "token", Err: fmt.Errorf("crear request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := c.do(req, "token")
	if err != nil {
		return "", 0, err
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", 0, &domain.TransmissionError{Op: "token", StatusCode: status, Body: body, Err: fmt.Errorf("respuesta sin access_token")}
	}
	ttl := time.Duration(tr.ExpiresIn)*time.Second - tokenSafetyMargin
	if ttl <= 0 {
		ttl = time.Minute
	}
	return tr.AccessToken, ttl, nil
}

// do ejecuta la llamada y convierte fallas de red y HTTP no-2xx en TransmissionError.
func (c *RESTClient) do(req *http.Request, op string) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return 0, nil, &domain.TransmissionError{Op: op, Err: fmt.Errorf("timeout o cancelación: %w", req.Context().Err())}
		}
		return 0, nil, unwrapBlocked(err, op)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, &domain.TransmissionError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("leer respuesta: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, body, &domain.TransmissionError{Op: op, StatusCode: resp.StatusCode, Body: body, Err: fmt.Errorf("respuesta no exitosa")}
	}
	return resp.StatusCode, body, nil
}

// tokenKey hash del destino (URL por ambiente y scope) y de las credenciales
// completas: rotar la clave SOL o el secreto invalida el token cacheado.
// La clave no expone credenciales.
func tokenKey(tokenURL, scope string, creds RESTCredentials) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		tokenURL, scope, creds.ClientID, creds.ClientSecret, creds.Username, creds.Password,
	}, "\x00")))
	return hex.EncodeToString(sum[:16])
}
