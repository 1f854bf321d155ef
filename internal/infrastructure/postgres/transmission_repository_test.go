package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/postgres"
)

func strPtr(s string) *string { return &s }

// ──────────────────────────────────────────────────────────────────────────────
// Create / GetByID
// ──────────────────────────────────────────────────────────────────────────────

func TestTransmissionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := postgres.NewTransmissionRepository(mock)

	rec := &entity.TransmissionRecord{
		CompanyID:    "c1",
		Environment:  entity.EnvironmentBeta,
		DocumentType: "01",
		Series:       "F001",
		Correlative:  "123",
		Payload:      []byte(`{"kind":"INVOICE"}`),
	}

	mock.ExpectExec(`INSERT INTO sunat_transmissions`).
		WithArgs(pgxmock.AnyArg(), "c1", pgxmock.AnyArg(), "BETA", "01", "F001", "123", "PENDING",
			rec.Payload, 0, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.NotEmpty(t, rec.ID, "se asigna un UUID")
	assert.Equal(t, entity.TransmissionPending, rec.Status)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransmissionRepo_CreateFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dbErr := errors.New("db caída")
	mock.ExpectExec(`INSERT INTO sunat_transmissions`).
		WithArgs(pgxmock.AnyArg(), "c1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), "PENDING", pgxmock.AnyArg(), 0, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(dbErr)

	err = postgres.NewTransmissionRepository(mock).Create(context.Background(), &entity.TransmissionRecord{CompanyID: "c1"})
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransmissionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := postgres.NewTransmissionRepository(mock)
	now := time.Now().UTC()

	cols := []string{"id", "company_id", "organization_id", "environment", "document_type", "series", "correlative",
		"status", "payload", "zip_file_path", "response", "error_message", "attempts", "created_at", "updated_at"}

	t.Run("encontrado", func(t *testing.T) {
		rows := pgxmock.NewRows(cols).AddRow("t1", "c1", strPtr("org1"), "PROD", "03", "B001", "7",
			"FAILED", []byte(`{}`), (*string)(nil), (*string)(nil), strPtr("transmisión sendBill (HTTP 500)"), 1, now, now)
		mock.ExpectQuery(`FROM sunat_transmissions WHERE id = \$1`).WithArgs("t1").WillReturnRows(rows)

		rec, err := repo.GetByID(context.Background(), "t1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "org1", rec.OrganizationID)
		assert.Equal(t, entity.EnvironmentProd, rec.Environment)
		assert.Equal(t, entity.TransmissionFailed, rec.Status)
		assert.Empty(t, rec.ZipFilePath)
		assert.Nil(t, rec.Response)
		require.NotNil(t, rec.ErrorMessage)
		assert.Equal(t, 1, rec.Attempts)
	})

	t.Run("no existe", func(t *testing.T) {
		mock.ExpectQuery(`FROM sunat_transmissions WHERE id = \$1`).WithArgs("nada").WillReturnError(pgx.ErrNoRows)

		rec, err := repo.GetByID(context.Background(), "nada")
		assert.NoError(t, err)
		assert.Nil(t, rec)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ──────────────────────────────────────────────────────────────────────────────
// Transition (update condicionado)
// ──────────────────────────────────────────────────────────────────────────────

func TestTransmissionRepo_Transition(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := postgres.NewTransmissionRepository(mock)

	t.Run("SENDING incrementa intentos", func(t *testing.T) {
		mock.ExpectExec(`UPDATE sunat_transmissions`).
			WithArgs("t1", "PENDING", "SENDING", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 1, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Transition(context.Background(), "t1", entity.TransmissionPending, entity.TransmissionSending, entity.TransitionPatch{})
		assert.NoError(t, err)
	})

	t.Run("SENT guarda el receipt", func(t *testing.T) {
		resp := `{"accepted":true,"code":"0"}`
		mock.ExpectExec(`UPDATE sunat_transmissions`).
			WithArgs("t1", "SENDING", "SENT", pgxmock.AnyArg(), &resp, pgxmock.AnyArg(), 0, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Transition(context.Background(), "t1", entity.TransmissionSending, entity.TransmissionSent,
			entity.TransitionPatch{Response: &resp})
		assert.NoError(t, err)
	})

	t.Run("cero filas es conflicto", func(t *testing.T) {
		mock.ExpectExec(`UPDATE sunat_transmissions`).
			WithArgs("t1", "FAILED", "RETRYING", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 0, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Transition(context.Background(), "t1", entity.TransmissionFailed, entity.TransmissionRetrying, entity.TransitionPatch{})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("transición ilegal no toca la base", func(t *testing.T) {
		err := repo.Transition(context.Background(), "t1", entity.TransmissionSent, entity.TransmissionSending, entity.TransitionPatch{})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ──────────────────────────────────────────────────────────────────────────────
// LastSequence / TxRunner
// ──────────────────────────────────────────────────────────────────────────────

func TestTransmissionRepo_LastSequence(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := postgres.NewTransmissionRepository(mock)

	mock.ExpectQuery(`WITH target AS`).WithArgs("c1", "01", "").
		WillReturnRows(pgxmock.NewRows([]string{"series", "correlative"}).AddRow("F002", "041"))
	series, corr, found, err := repo.LastSequence(context.Background(), "c1", "01", "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "F002", series)
	assert.Equal(t, "041", corr)

	mock.ExpectQuery(`WITH target AS`).WithArgs("c1", "09", "T001").WillReturnError(pgx.ErrNoRows)
	_, _, found, err = repo.LastSequence(context.Background(), "c1", "09", "T001")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_RunSequence(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	runner := postgres.NewTxRunner(mock)

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("c1|01|F001").WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery(`WITH target AS`).WithArgs("c1", "01", "F001").WillReturnError(pgx.ErrNoRows)
		mock.ExpectCommit()

		err := runner.RunSequence(context.Background(), "c1|01|F001", func(repo repository.TransmissionRepository) error {
			_, _, found, err := repo.LastSequence(context.Background(), "c1", "01", "F001")
			assert.False(t, found)
			return err
		})
		assert.NoError(t, err)
	})

	t.Run("rollback si fn falla", func(t *testing.T) {
		boom := errors.New("fallo")
		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("k").WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectRollback()

		err := runner.RunSequence(context.Background(), "k", func(repository.TransmissionRepository) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
