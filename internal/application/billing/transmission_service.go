package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// maxStoredBody límite de la respuesta cruda que se guarda junto al error.
const maxStoredBody = 4000

// sentPersistAttempts intentos para guardar SENT una vez recibido el CDR.
const sentPersistAttempts = 3

// Options ajustes del servicio.
type Options struct {
	// DefaultEnvironment se usa si ni la solicitud ni la empresa indican ambiente.
	DefaultEnvironment entity.Environment
	StrictRUC          bool
	// PersistBackoff espera base entre reintentos al guardar SENT (200ms si es cero).
	PersistBackoff time.Duration
}

func (o Options) persistBackoff() time.Duration {
	if o.PersistBackoff <= 0 {
		return 200 * time.Millisecond
	}
	return o.PersistBackoff
}

// Deps dependencias del TransmissionService. Archives, Events, Profiles y Sequences son opcionales.
type Deps struct {
	Repo        repository.TransmissionRepository
	Sequences   SequenceRunner
	Profiles    ProfileReader
	Credentials CredentialResolver
	Material    MaterialLoader
	Normalizer  *domsunat.Normalizer
	Builder     DocumentBuilder
	Signer      sunat.Signer
	Endpoints   EndpointResolver
	Transmitter DocumentTransmitter
	Archives    ArchiveStore
	Events      EventPublisher
}

// TransmissionService orquesta el ciclo de envío de un comprobante a SUNAT:
//
//	Normalizar → XML UBL 2.1 → C14N + SHA-256 → Firma → ZIP → Envío → CDR → Registro
//
// Cada intento es secuencial. El registro en sunat_transmissions solo cambia de
// estado mediante transiciones condicionadas al estado previo.
type TransmissionService struct {
	repo        repository.TransmissionRepository
	sequences   SequenceRunner
	profiles    ProfileReader
	credentials CredentialResolver
	material    MaterialLoader
	normalizer  *domsunat.Normalizer
	builder     DocumentBuilder
	signer      sunat.Signer
	endpoints   EndpointResolver
	transmitter DocumentTransmitter
	archives    ArchiveStore
	events      EventPublisher
	opts        Options
	log         zerolog.Logger
	now         func() time.Time
}

// NewTransmissionService construye el servicio.
func NewTransmissionService(deps Deps, opts Options, log zerolog.Logger) *TransmissionService {
	if opts.DefaultEnvironment == "" {
		opts.DefaultEnvironment = entity.EnvironmentBeta
	}
	if deps.Normalizer == nil {
		deps.Normalizer = domsunat.NewNormalizer(domsunat.DefaultIGVRate)
	}
	if deps.Material == nil {
		deps.Material = FileMaterialLoader{}
	}
	return &TransmissionService{
		repo:        deps.Repo,
		sequences:   deps.Sequences,
		profiles:    deps.Profiles,
		credentials: deps.Credentials,
		material:    deps.Material,
		normalizer:  deps.Normalizer,
		builder:     deps.Builder,
		signer:      deps.Signer,
		endpoints:   deps.Endpoints,
		transmitter: deps.Transmitter,
		archives:    deps.Archives,
		events:      deps.Events,
		opts:        opts,
		log:         log,
		now:         time.Now,
	}
}

// SendCommand solicitud de envío.
type SendCommand struct {
	CompanyID      string
	OrganizationID string
	Document       domsunat.RawDocument
	// Environment "BETA" o "PROD"; vacío usa el ambiente preferido de la empresa.
	Environment string
}

// RetryCommand reenvío manual de una transmisión FAILED.
type RetryCommand struct {
	TransmissionID string
	Caller         entity.Caller
}

// SendResult resultado de un intento que llegó a SENT.
type SendResult struct {
	TransmissionID string                    `json:"transmissionRecordId"`
	Status         entity.TransmissionStatus `json:"status"`
	Environment    entity.Environment        `json:"environment"`
	DocumentType   string                    `json:"documentType"`
	Series         string                    `json:"series"`
	Correlative    string                    `json:"correlative"`
	FileName       string                    `json:"fileName"`
	Receipt        entity.Receipt            `json:"receipt"`
}

// CorrelativeResult siguiente serie y correlativo a emitir.
type CorrelativeResult struct {
	Series      string `json:"series"`
	Correlative string `json:"correlative"`
}

// FailedAttemptError el intento quedó persistido en FAILED. Err conserva la causa
// original (SigningError, TransmissionError, etc.).
type FailedAttemptError struct {
	TransmissionID string
	Step           string
	Err            error
}

func (e *FailedAttemptError) Error() string {
	return fmt.Sprintf("transmisión %s falló en %s: %v", e.TransmissionID, e.Step, e.Err)
}

func (e *FailedAttemptError) Unwrap() error { return e.Err }

// SendDocument normaliza, valida, persiste en PENDING y ejecuta el envío.
// Las credenciales se resuelven antes de crear el registro: sin credenciales no
// queda rastro en la base.
func (s *TransmissionService) SendDocument(ctx context.Context, cmd SendCommand) (*SendResult, error) {
	if strings.TrimSpace(cmd.CompanyID) == "" {
		return nil, fmt.Errorf("%w: company_id requerido", domain.ErrInvalidInput)
	}
	doc, err := s.normalizer.Normalize(cmd.Document)
	if err != nil {
		return nil, err
	}

	profile, err := s.profile(ctx, cmd.CompanyID)
	if err != nil {
		return nil, err
	}
	env, err := s.resolveEnvironment(cmd.Environment, profile)
	if err != nil {
		return nil, err
	}

	creds, err := s.credentials.Resolve(ctx, cmd.CompanyID, env)
	if err != nil {
		s.log.Warn().Err(err).Str("company_id", cmd.CompanyID).Str("environment", string(env)).Msg("[SUNAT] credenciales no disponibles")
		return nil, err
	}

	if doc.Supplier.RUC == "" {
		switch {
		case profile != nil && profile.RUC != "":
			doc.Supplier.RUC = profile.RUC
		default:
			doc.Supplier.RUC = creds.RUC
		}
	}
	if doc.Supplier.LegalName == "" && profile != nil {
		doc.Supplier.LegalName = profile.LegalName
	}
	orgID := cmd.OrganizationID
	if orgID == "" && profile != nil {
		orgID = profile.OrganizationID
	}

	rec, err := s.createRecord(ctx, cmd.CompanyID, orgID, env, doc)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("transmission_id", rec.ID).
		Str("company_id", rec.CompanyID).
		Str("document", doc.ID()).
		Str("environment", string(env)).
		Msg("[SUNAT] transmisión registrada")

	return s.replay(ctx, rec, doc, creds, entity.TransmissionPending)
}

// RetryTransmission reenvía una transmisión FAILED desde su payload almacenado.
// Sin privilegio de administrador el registro no se toca.
func (s *TransmissionService) RetryTransmission(ctx context.Context, cmd RetryCommand) (*SendResult, error) {
	if !cmd.Caller.CanRetryTransmission() {
		s.log.Warn().Str("transmission_id", cmd.TransmissionID).Str("user_id", cmd.Caller.UserID).Str("role", cmd.Caller.Role).Msg("[SUNAT] reintento denegado")
		return nil, fmt.Errorf("%w: reintentar requiere rol %s o %s", domain.ErrForbidden, entity.RoleOrgAdmin, entity.RoleSuperAdmin)
	}

	rec, err := s.repo.GetByID(ctx, cmd.TransmissionID)
	if err != nil {
		return nil, err
	}
	if rec == nil || !cmd.Caller.CanAccess(rec) {
		return nil, domain.ErrNotFound
	}
	if rec.Status != entity.TransmissionFailed {
		return nil, fmt.Errorf("%w: la transmisión está en %s", domain.ErrInvalidTransition, rec.Status)
	}
	if len(rec.Payload) == 0 {
		return nil, domain.ErrMissingPayload
	}
	var doc entity.DocumentRequest
	if err := json.Unmarshal(rec.Payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: payload ilegible: %v", domain.ErrInvalidInput, err)
	}

	creds, err := s.credentials.Resolve(ctx, rec.CompanyID, rec.Environment)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Transition(ctx, rec.ID, entity.TransmissionFailed, entity.TransmissionRetrying, entity.TransitionPatch{}); err != nil {
		return nil, err
	}
	s.log.Info().Str("transmission_id", rec.ID).Str("user_id", cmd.Caller.UserID).Int("attempts", rec.Attempts).Msg("[SUNAT] reintento iniciado")

	return s.replay(ctx, rec, &doc, creds, entity.TransmissionRetrying)
}

// NextCorrelative último correlativo + 1 de la serie (o "001" si no hay emisiones).
// Sin serie se usa la última serie emitida del tipo o la serie por defecto.
func (s *TransmissionService) NextCorrelative(ctx context.Context, companyID, documentType, series string) (*CorrelativeResult, error) {
	kind, ok := entity.KindFromTypeCode(strings.ToUpper(strings.TrimSpace(documentType)))
	if !ok {
		return nil, domain.NewValidationError("tipo de documento desconocido %q", documentType)
	}
	typeCode := kind.TypeCode()
	series = strings.ToUpper(strings.TrimSpace(series))

	lastSeries, lastCorrelative, found, err := s.repo.LastSequence(ctx, companyID, typeCode, series)
	if err != nil {
		return nil, err
	}
	return nextSequence(series, typeCode, lastSeries, lastCorrelative, found)
}

// GetTransmission devuelve el registro si pertenece a la empresa del llamador.
func (s *TransmissionService) GetTransmission(ctx context.Context, caller entity.Caller, id string) (*entity.TransmissionRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || !caller.CanAccess(rec) {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func nextSequence(series, typeCode, lastSeries, lastCorrelative string, found bool) (*CorrelativeResult, error) {
	if !found {
		return &CorrelativeResult{
			Series:      domsunat.ResolveSeries(series, "", typeCode),
			Correlative: domsunat.FirstCorrelative,
		}, nil
	}
	next, err := domsunat.NextCorrelative(lastCorrelative)
	if err != nil {
		return nil, err
	}
	return &CorrelativeResult{
		Series:      domsunat.ResolveSeries(series, lastSeries, typeCode),
		Correlative: next,
	}, nil
}

// createRecord valida y persiste el registro PENDING. Si falta serie o correlativo
// se asignan bajo el lock de secuencia de (empresa, tipo).
func (s *TransmissionService) createRecord(ctx context.Context, companyID, orgID string, env entity.Environment, doc *entity.DocumentRequest) (*entity.TransmissionRecord, error) {
	typeCode := doc.Kind().TypeCode()
	needsSequence := doc.Series == "" || doc.Correlative == ""
	var rec *entity.TransmissionRecord

	create := func(repo repository.TransmissionRepository) error {
		if needsSequence {
			lastSeries, lastCorrelative, found, err := repo.LastSequence(ctx, companyID, typeCode, doc.Series)
			if err != nil {
				return err
			}
			seq, err := nextSequence(doc.Series, typeCode, lastSeries, lastCorrelative, found)
			if err != nil {
				return err
			}
			doc.Series = seq.Series
			if doc.Correlative == "" {
				doc.Correlative = seq.Correlative
			}
		}
		if err := domsunat.ValidateDocument(doc, domsunat.ValidateOptions{StrictRUC: s.opts.StrictRUC}); err != nil {
			return err
		}
		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("serializar payload: %w", err)
		}
		rec = &entity.TransmissionRecord{
			ID:             uuid.New().String(),
			CompanyID:      companyID,
			OrganizationID: orgID,
			Environment:    env,
			DocumentType:   typeCode,
			Series:         doc.Series,
			Correlative:    doc.Correlative,
			Status:         entity.TransmissionPending,
			Payload:        payload,
		}
		return repo.Create(ctx, rec)
	}

	var err error
	if needsSequence && s.sequences != nil {
		err = s.sequences.RunSequence(ctx, companyID+":"+typeCode, create)
	} else {
		err = create(s.repo)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// replay etapas 2 a 8 sobre un documento ya normalizado. from es PENDING en el
// primer intento y RETRYING en un reenvío.
func (s *TransmissionService) replay(ctx context.Context, rec *entity.TransmissionRecord, doc *entity.DocumentRequest, creds *entity.Credentials, from entity.TransmissionStatus) (*SendResult, error) {
	log := s.log.With().
		Str("transmission_id", rec.ID).
		Str("company_id", rec.CompanyID).
		Str("environment", string(rec.Environment)).
		Str("document", doc.ID()).
		Logger()
	// Los estados terminales se persisten aunque el llamador cancele.
	persistCtx := context.WithoutCancel(ctx)
	current := from

	// markError pasa el registro a FAILED con el mensaje del paso que falló.
	markError := func(step string, cause error) error {
		msg := step + ": " + cause.Error()
		var terr *domain.TransmissionError
		if errors.As(cause, &terr) && len(terr.Body) > 0 {
			msg += " | respuesta: " + truncate(string(terr.Body), maxStoredBody)
		}
		msg = strings.ToValidUTF8(msg, "\uFFFD")
		if err := s.repo.Transition(persistCtx, rec.ID, current, entity.TransmissionFailed, entity.TransitionPatch{ErrorMessage: &msg}); err != nil {
			log.Error().Err(err).Str("step", step).Msg("[SUNAT] no se pudo persistir FAILED")
		}
		log.Error().Err(cause).Str("step", step).Str("tag", domain.TagOf(cause)).Msg("[SUNAT] intento fallido")
		s.publish(persistCtx, rec, doc, entity.TransmissionFailed, nil)
		return &FailedAttemptError{TransmissionID: rec.ID, Step: step, Err: cause}
	}

	stem := domsunat.FileStem(doc.Supplier.RUC, rec.DocumentType, doc.Series, doc.Correlative)

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. XML UBL 2.1
	// ═══════════════════════════════════════════════════════════════════════════
	unsigned, err := s.builder.Build(doc)
	if err != nil {
		return nil, markError("xml-build", err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. C14N exclusivo + SHA-256
	// ═══════════════════════════════════════════════════════════════════════════
	digest, err := infrasunat.Digest(unsigned.XML)
	if err != nil {
		return nil, markError("digest", err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 4. Firma XML-DSig (material cargado por intento, nunca cacheado)
	// ═══════════════════════════════════════════════════════════════════════════
	material, err := s.material.Load(creds)
	if err != nil {
		return nil, markError("certificado", err)
	}
	signedXML, err := s.signer.Sign(unsigned.XML, digest, material, unsigned.ReferenceURI)
	if err != nil {
		return nil, markError("firma", err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 5. ZIP
	// ═══════════════════════════════════════════════════════════════════════════
	archive, err := infrasunat.Pack(entity.SignedDocument{XML: signedXML, FileStem: stem})
	if err != nil {
		return nil, markError("zip", err)
	}
	var zipPath *string
	if s.archives != nil {
		location, err := s.archives.Save(ctx, rec.CompanyID, archive)
		if err != nil {
			return nil, markError("storage", err)
		}
		zipPath = &location
	}

	dest, err := s.endpoints.Resolve(rec.Environment, rec.DocumentType, stem)
	if err != nil {
		return nil, markError("endpoint", err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 6. Envío (SOAP sendBill o REST + OAuth2)
	// ═══════════════════════════════════════════════════════════════════════════
	if err := s.repo.Transition(ctx, rec.ID, current, entity.TransmissionSending, entity.TransitionPatch{ZipFilePath: zipPath}); err != nil {
		log.Warn().Err(err).Msg("[SUNAT] no se pudo tomar la transmisión")
		return nil, err
	}
	current = entity.TransmissionSending
	rec.Attempts++

	log.Info().Str("protocol", string(dest.Protocol)).Str("file", archive.FileName).Msg("[SUNAT] enviando")
	raw, err := s.transmitter.Send(ctx, archive, dest, creds)
	if err != nil {
		return nil, markError("transmision", err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 7. CDR (nunca falla; un CDR ilegible queda como no aceptado)
	// ═══════════════════════════════════════════════════════════════════════════
	receipt, diag := infrasunat.ParseReceipt(raw)
	if diag != nil {
		log.Warn().Err(diag).Msg("[SUNAT] CDR incompleto")
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 8. SENT (también cuando SUNAT rechaza el contenido)
	// ═══════════════════════════════════════════════════════════════════════════
	response, err := json.Marshal(receipt)
	if err != nil {
		return nil, fmt.Errorf("serializar receipt: %w", err)
	}
	responseText := string(response)
	if err := s.persistSent(persistCtx, rec.ID, responseText); err != nil {
		// SUNAT ya tiene el comprobante: no se marca FAILED para no reenviarlo.
		// El registro queda en SENDING y el log conserva el CDR para conciliarlo a mano.
		log.Error().Err(err).
			Bool("accepted", receipt.Accepted).
			Str("code", receipt.Code).
			Str("ticket", raw.Ticket).
			RawJSON("receipt", response).
			Msg("[SUNAT] CDR recibido pero no se pudo persistir SENT")
		return nil, fmt.Errorf("persistir SENT de %s: %w", rec.ID, err)
	}
	log.Info().Bool("accepted", receipt.Accepted).Str("code", receipt.Code).Str("description", receipt.Description).Msg("[SUNAT] CDR recibido")
	s.publish(persistCtx, rec, doc, entity.TransmissionSent, &receipt)

	return &SendResult{
		TransmissionID: rec.ID,
		Status:         entity.TransmissionSent,
		Environment:    rec.Environment,
		DocumentType:   rec.DocumentType,
		Series:         doc.Series,
		Correlative:    doc.Correlative,
		FileName:       archive.FileName,
		Receipt:        receipt,
	}, nil
}

// persistSent reintenta la transición SENDING -> SENT ante fallas transitorias de la BD.
// Un conflicto de estado no se reintenta.
func (s *TransmissionService) persistSent(ctx context.Context, id, response string) error {
	var err error
	for attempt := 1; attempt <= sentPersistAttempts; attempt++ {
		err = s.repo.Transition(ctx, id, entity.TransmissionSending, entity.TransmissionSent, entity.TransitionPatch{Response: &response})
		if err == nil || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrInvalidTransition) {
			return err
		}
		s.log.Warn().Err(err).Str("transmission_id", id).Int("attempt", attempt).Msg("[SUNAT] reintentando persistir SENT")
		if attempt < sentPersistAttempts {
			time.Sleep(time.Duration(attempt) * s.opts.persistBackoff())
		}
	}
	return err
}

func (s *TransmissionService) publish(ctx context.Context, rec *entity.TransmissionRecord, doc *entity.DocumentRequest, status entity.TransmissionStatus, receipt *entity.Receipt) {
	if s.events == nil {
		return
	}
	event := entity.TransmissionEvent{
		TransmissionID: rec.ID,
		CompanyID:      rec.CompanyID,
		OrganizationID: rec.OrganizationID,
		Environment:    rec.Environment,
		DocumentType:   rec.DocumentType,
		Series:         doc.Series,
		Correlative:    doc.Correlative,
		Status:         status,
		Attempts:       rec.Attempts,
		OccurredAt:     s.now().UTC(),
	}
	if receipt != nil {
		event.Accepted = receipt.Accepted
		event.ResponseCode = receipt.Code
		event.Description = receipt.Description
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("transmission_id", rec.ID).Msg("[SUNAT] evento no publicado")
	}
}

func (s *TransmissionService) profile(ctx context.Context, companyID string) (*entity.CompanySunatProfile, error) {
	if s.profiles == nil {
		return nil, nil
	}
	p, err := s.profiles.GetProfile(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("leer perfil SUNAT: %w", err)
	}
	return p, nil
}

func (s *TransmissionService) resolveEnvironment(override string, profile *entity.CompanySunatProfile) (entity.Environment, error) {
	if override = strings.TrimSpace(override); override != "" {
		env, ok := entity.ParseEnvironment(override)
		if !ok {
			return "", fmt.Errorf("%w: ambiente desconocido %q", domain.ErrInvalidInput, override)
		}
		return env, nil
	}
	if profile != nil && profile.PreferredEnvironment != "" {
		return profile.PreferredEnvironment, nil
	}
	return s.opts.DefaultEnvironment, nil
}

// truncate corta en n bytes sin partir una runa; los bytes que no son UTF-8
// (CDR en ISO-8859-1) se reemplazan para que la columna TEXT los acepte.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
