package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
)

var _ repository.TransmissionRepository = (*TransmissionRepo)(nil)

// TransmissionRepo implementación de TransmissionRepository (usable con pool o tx).
type TransmissionRepo struct {
	q Querier
}

// NewTransmissionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransmissionRepository(q Querier) *TransmissionRepo {
	return &TransmissionRepo{q: q}
}

// Create persiste la transmisión en PENDING.
func (r *TransmissionRepo) Create(ctx context.Context, rec *entity.TransmissionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = entity.TransmissionPending
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt

	query := `
		INSERT INTO sunat_transmissions (id, company_id, organization_id, environment, document_type, series, correlative, status, payload, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.CompanyID, nullIfEmpty(rec.OrganizationID), string(rec.Environment),
		rec.DocumentType, rec.Series, rec.Correlative, string(rec.Status), rec.Payload,
		rec.Attempts, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transmission already exists: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert transmission: %w", err)
	}
	return nil
}

// GetByID obtiene la transmisión completa (incluye payload).
func (r *TransmissionRepo) GetByID(ctx context.Context, id string) (*entity.TransmissionRecord, error) {
	query := `
		SELECT id, company_id, organization_id, environment, document_type, series, correlative,
		       status, payload, zip_file_path, response, error_message, attempts, created_at, updated_at
		FROM sunat_transmissions WHERE id = $1`
	var (
		rec            entity.TransmissionRecord
		orgID, zipPath *string
		env, status    string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.CompanyID, &orgID, &env, &rec.DocumentType, &rec.Series, &rec.Correlative,
		&status, &rec.Payload, &zipPath, &rec.Response, &rec.ErrorMessage, &rec.Attempts,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transmission: %w", err)
	}
	rec.OrganizationID = derefStr(orgID)
	rec.ZipFilePath = derefStr(zipPath)
	rec.Environment = entity.Environment(env)
	rec.Status = entity.TransmissionStatus(status)
	return &rec, nil
}

// Transition UPDATE condicionado al estado actual. Cero filas afectadas significa que
// el registro no existe o ya cambió de estado: domain.ErrConflict.
func (r *TransmissionRepo) Transition(ctx context.Context, id string, from, to entity.TransmissionStatus, patch entity.TransitionPatch) error {
	if !entity.CanTransition(from, to) {
		return fmt.Errorf("%s → %s: %w", from, to, domain.ErrInvalidTransition)
	}
	query := `
		UPDATE sunat_transmissions
		SET status        = $3,
		    zip_file_path = COALESCE($4, zip_file_path),
		    response      = COALESCE($5, response),
		    error_message = $6,
		    attempts      = attempts + $7,
		    updated_at    = $8
		WHERE id = $1 AND status = $2`
	increment := 0
	if to == entity.TransmissionSending {
		increment = 1
	}
	tag, err := r.q.Exec(ctx, query,
		id, string(from), string(to),
		patch.ZipFilePath, patch.Response, patch.ErrorMessage,
		increment, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update transmission status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transmission %s no está en %s: %w", id, from, domain.ErrConflict)
	}
	return nil
}

// LastSequence última serie/correlativo por (empresa, tipo). Sin serie se toma la
// serie del registro más reciente.
func (r *TransmissionRepo) LastSequence(ctx context.Context, companyID, documentType, series string) (string, string, bool, error) {
	query := `
		WITH target AS (
			SELECT COALESCE(NULLIF($3, ''), (
				SELECT series FROM sunat_transmissions
				WHERE company_id = $1 AND document_type = $2
				ORDER BY created_at DESC LIMIT 1
			)) AS series
		)
		SELECT t.series, t.correlative
		FROM sunat_transmissions t JOIN target ON t.series = target.series
		WHERE t.company_id = $1 AND t.document_type = $2
		ORDER BY t.correlative::bigint DESC
		LIMIT 1`
	var lastSeries, lastCorrelative string
	err := r.q.QueryRow(ctx, query, companyID, documentType, series).Scan(&lastSeries, &lastCorrelative)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("last correlative: %w", err)
	}
	return lastSeries, lastCorrelative, true, nil
}
