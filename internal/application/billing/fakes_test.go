package billing_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	infra "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer/signertest"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/sunattest"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// ── memRepo ──────────────────────────────────────────────────────────────────

// memRepo TransmissionRepository en memoria con las mismas guardas que el repo PostgreSQL.
type memRepo struct {
	mu      sync.Mutex
	seqMu   sync.Mutex
	seq     int
	records map[string]*entity.TransmissionRecord
	order   map[string]int
	history map[string][]entity.TransmissionStatus
	// failSent cantidad de transiciones a SENT que fallan antes de aplicarse.
	failSent int
}

func newMemRepo() *memRepo {
	return &memRepo{
		records: map[string]*entity.TransmissionRecord{},
		order:   map[string]int{},
		history: map[string][]entity.TransmissionStatus{},
	}
}

func (r *memRepo) Create(_ context.Context, rec *entity.TransmissionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; ok {
		return domain.ErrConflict
	}
	if rec.Status == "" {
		rec.Status = entity.TransmissionPending
	}
	cp := *rec
	r.seq++
	r.records[rec.ID] = &cp
	r.order[rec.ID] = r.seq
	r.history[rec.ID] = []entity.TransmissionStatus{cp.Status}
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*entity.TransmissionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *memRepo) Transition(_ context.Context, id string, from, to entity.TransmissionStatus, patch entity.TransitionPatch) error {
	if !entity.CanTransition(from, to) {
		return domain.ErrInvalidTransition
	}
	if patch.ErrorMessage != nil && !utf8.ValidString(*patch.ErrorMessage) {
		// PostgreSQL rechaza TEXT inválido con SQLSTATE 22021.
		return errors.New("invalid byte sequence for encoding \"UTF8\"")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if to == entity.TransmissionSent && r.failSent > 0 {
		r.failSent--
		return errors.New("conn reset by peer")
	}
	rec, ok := r.records[id]
	if !ok || rec.Status != from {
		return domain.ErrConflict
	}
	rec.Status = to
	if patch.ZipFilePath != nil {
		rec.ZipFilePath = *patch.ZipFilePath
	}
	if patch.Response != nil {
		rec.Response = patch.Response
	}
	rec.ErrorMessage = patch.ErrorMessage
	if to == entity.TransmissionSending {
		rec.Attempts++
	}
	r.history[id] = append(r.history[id], to)
	return nil
}

func (r *memRepo) LastSequence(_ context.Context, companyID, documentType, series string) (string, string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []*entity.TransmissionRecord
	for _, rec := range r.records {
		if rec.CompanyID == companyID && rec.DocumentType == documentType {
			matches = append(matches, rec)
		}
	}
	if len(matches) == 0 {
		return "", "", false, nil
	}
	if series == "" {
		sort.Slice(matches, func(i, j int) bool { return r.order[matches[i].ID] > r.order[matches[j].ID] })
		series = matches[0].Series
	}
	best, bestN := "", int64(-1)
	for _, rec := range matches {
		if rec.Series != series {
			continue
		}
		n, _ := strconv.ParseInt(rec.Correlative, 10, 64)
		if n > bestN {
			best, bestN = rec.Correlative, n
		}
	}
	if bestN < 0 {
		return "", "", false, nil
	}
	return series, best, true, nil
}

func (r *memRepo) RunSequence(_ context.Context, _ string, fn func(repo repository.TransmissionRepository) error) error {
	r.seqMu.Lock()
	defer r.seqMu.Unlock()
	return fn(r)
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *memRepo) statuses(id string) []entity.TransmissionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.TransmissionStatus(nil), r.history[id]...)
}

// ── colaboradores ────────────────────────────────────────────────────────────

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.TransmissionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e entity.TransmissionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) all() []entity.TransmissionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entity.TransmissionEvent(nil), p.events...)
}

type memArchives struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (m *memArchives) Save(_ context.Context, companyID string, a *entity.ArchiveEntry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	loc := "mem://" + companyID + "/" + a.FileName
	m.saved[loc] = a.Content
	return loc, nil
}

// fakeMaterial devuelve material en memoria y registra qué certificado se pidió.
type fakeMaterial struct {
	mu       sync.Mutex
	material sunat.SigningMaterial
	err      error
	paths    []string
}

func (f *fakeMaterial) Load(creds *entity.Credentials) (sunat.SigningMaterial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, creds.CertPath)
	if f.err != nil {
		return sunat.SigningMaterial{}, f.err
	}
	return f.material, nil
}

// fakeSUNAT billService de prueba: registra usuario, ruta y nombre de archivo.
type fakeSUNAT struct {
	srv *httptest.Server

	mu      sync.Mutex
	hits    int
	users   []string
	paths   []string
	bodies  []string
	respond func(w http.ResponseWriter)
}

func newFakeSUNAT(t *testing.T, code, description string) *fakeSUNAT {
	t.Helper()
	f := &fakeSUNAT{}
	f.respond = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, sunattest.SOAPSendBillResponse(sunattest.CDR("F001-123", code, description)))
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		assert.True(t, ok, "sendBill debe usar Basic Auth")
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.hits++
		f.users = append(f.users, user)
		f.paths = append(f.paths, r.URL.Path)
		f.bodies = append(f.bodies, string(body))
		respond := f.respond
		f.mu.Unlock()

		respond(w)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSUNAT) setResponder(fn func(w http.ResponseWriter)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = fn
}

func (f *fakeSUNAT) snapshot() (hits int, users, paths, bodies []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits, append([]string(nil), f.users...), append([]string(nil), f.paths...), append([]string(nil), f.bodies...)
}

// ── harness ──────────────────────────────────────────────────────────────────

const (
	companyID  = "c1"
	betaUser   = "20100000001MODDATOS"
	prodUser   = "20100000001FACTURA1"
	betaPath   = "/ol-ti-itcpfegem-beta/billService"
	prodPath   = "/ol-ti-itcpfegem/billService"
	betaCert   = "/secrets/beta/cert.pem"
	prodCert   = "/secrets/prod/cert.pem"
	orgAdminID = "u-admin"
)

type harness struct {
	svc      *billing.TransmissionService
	repo     *memRepo
	events   *recordingPublisher
	archives *memArchives
	material *fakeMaterial
	beta     *fakeSUNAT
	prod     *fakeSUNAT
	creds    billing.StaticCredentialResolver

	endpoints   infra.EndpointDirectory
	transmitter *infra.Transmitter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:     newMemRepo(),
		events:   &recordingPublisher{},
		archives: &memArchives{},
		material: &fakeMaterial{material: signertest.NewPEMPair(t, "EMPRESA DEMO").Material(t)},
		beta:     newFakeSUNAT(t, "0", "La Factura numero F001-123, ha sido aceptada"),
		prod:     newFakeSUNAT(t, "0", "La Factura numero F001-123, ha sido aceptada"),
		creds: billing.StaticCredentialResolver{
			entity.EnvironmentBeta: {RUC: sunattest.SupplierRUC, SolUser: betaUser, SolPassword: "moddatos", CertPath: betaCert},
			entity.EnvironmentProd: {RUC: sunattest.SupplierRUC, SolUser: prodUser, SolPassword: "prod-secret", CertPath: prodCert},
		},
	}

	guard := &infra.DestinationGuard{AllowPrivate: true}
	httpClient := infra.NewHTTPClient(5*time.Second, guard)
	transmitter := infra.NewTransmitter(
		infra.NewSOAPClient(httpClient, guard),
		infra.NewRESTClient(httpClient, guard, infra.NewMemoryTokenCache(), zerolog.Nop()),
	)
	endpoints := infra.DefaultEndpointDirectory()
	endpoints.Beta.BillServiceURL = h.beta.srv.URL + betaPath
	endpoints.Prod.BillServiceURL = h.prod.srv.URL + prodPath

	h.endpoints = endpoints
	h.transmitter = transmitter

	h.svc = billing.NewTransmissionService(h.deps(), billing.Options{DefaultEnvironment: entity.EnvironmentBeta, PersistBackoff: time.Millisecond}, zerolog.Nop())
	return h
}

func (h *harness) deps() billing.Deps {
	return billing.Deps{
		Repo:        h.repo,
		Sequences:   h.repo,
		Credentials: h.creds,
		Material:    h.material,
		Builder:     infra.NewXMLBuilderService(),
		Signer:      signer.NewDigitalSignatureService(),
		Endpoints:   h.endpoints,
		Transmitter: h.transmitter,
		Archives:    h.archives,
		Events:      h.events,
	}
}

type staticProfiles map[string]*entity.CompanySunatProfile

func (p staticProfiles) GetProfile(_ context.Context, companyID string) (*entity.CompanySunatProfile, error) {
	return p[companyID], nil
}

func invoiceRaw() domsunat.RawDocument {
	return domsunat.RawDocument{
		DocumentKind: "01",
		Series:       "F001",
		Correlative:  "123",
		IssueDate:    "2024-05-10",
		IssueTime:    "10:30:00",
		Currency:     "PEN",
		Supplier: domsunat.RawSupplier{
			RUC:       sunattest.SupplierRUC,
			LegalName: "EMPRESA DEMO S.A.C.",
			Address:   entity.Address{Ubigeo: "150101", Line: "AV. AREQUIPA 123"},
		},
		Customer: &domsunat.RawParty{DocType: "6", DocNumber: "20100070970", LegalName: "CLIENTE CORPORATIVO S.A."},
		LineItems: []domsunat.RawLine{
			{Description: "PRODUCTO DE PRUEBA", Quantity: domsunat.NewAmount("1"), UnitPrice: domsunat.NewAmount("100")},
		},
	}
}
