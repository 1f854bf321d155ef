package repository

import (
	"context"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// TransmissionRepository puerto de persistencia de TransmissionRecord.
type TransmissionRepository interface {
	Create(ctx context.Context, rec *entity.TransmissionRecord) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.TransmissionRecord, error)
	// Transition cambia el estado solo si el estado actual es from (update condicionado).
	// Si otra operación ya movió el registro devuelve domain.ErrConflict.
	Transition(ctx context.Context, id string, from, to entity.TransmissionStatus, patch entity.TransitionPatch) error
	// LastSequence devuelve la última serie y correlativo emitidos por (empresa, tipo).
	// Si series no está vacío se restringe a esa serie. found=false si no hay registros.
	LastSequence(ctx context.Context, companyID, documentType, series string) (lastSeries, lastCorrelative string, found bool, err error)
}
