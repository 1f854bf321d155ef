package postgres_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/postgres"
)

func TestCredentialsRepo_GetCredentials(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := postgres.NewCredentialsRepository(mock)

	cols := []string{"company_id", "environment", "ruc", "sol_user", "sol_password", "cert_path", "key_path",
		"cert_password", "client_id", "client_secret"}
	mock.ExpectQuery(`FROM sunat_credentials`).WithArgs("c1", "PROD").
		WillReturnRows(pgxmock.NewRows(cols).AddRow("c1", "PROD", "20100000001", "20100000001USUARIO", "clave",
			"/secrets/c1/prod.p12", "", "p12pass", "", ""))

	creds, err := repo.GetCredentials(context.Background(), "c1", entity.EnvironmentProd)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, entity.EnvironmentProd, creds.Environment)
	assert.Equal(t, "/secrets/c1/prod.p12", creds.CertPath)
	assert.True(t, creds.Complete())
	assert.False(t, creds.HasOAuthClient())

	mock.ExpectQuery(`FROM sunat_credentials`).WithArgs("c1", "BETA").WillReturnError(pgx.ErrNoRows)
	creds, err = repo.GetCredentials(context.Background(), "c1", entity.EnvironmentBeta)
	assert.NoError(t, err)
	assert.Nil(t, creds, "sin credenciales para el ambiente")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialsRepo_GetProfile(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM sunat_company_profiles`).WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"company_id", "organization_id", "ruc", "legal_name", "preferred_environment"}).
			AddRow("c1", "org1", "20100000001", "EMPRESA DEMO S.A.C.", "BETA"))

	p, err := postgres.NewCredentialsRepository(mock).GetProfile(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, entity.EnvironmentBeta, p.PreferredEnvironment)
	assert.Equal(t, "org1", p.OrganizationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialsRepo_SaveProfile(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO sunat_company_profiles`).
		WithArgs("c1", pgxmock.AnyArg(), "20100000001", "EMPRESA DEMO S.A.C.", "BETA").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = postgres.NewCredentialsRepository(mock).SaveProfile(context.Background(), &entity.CompanySunatProfile{
		CompanyID: "c1",
		RUC:       "20100000001",
		LegalName: "EMPRESA DEMO S.A.C.",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialsRepo_SaveCredentials(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	keyPath := "/secrets/c1/beta.key"
	mock.ExpectExec(`INSERT INTO sunat_credentials`).
		WithArgs("c1", "BETA", "20100000001", "20100000001MODDATOS", "moddatos", "/secrets/c1/beta.pem",
			&keyPath, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = postgres.NewCredentialsRepository(mock).SaveCredentials(context.Background(), &entity.Credentials{
		CompanyID:   "c1",
		Environment: entity.EnvironmentBeta,
		RUC:         "20100000001",
		SolUser:     "20100000001MODDATOS",
		SolPassword: "moddatos",
		CertPath:    "/secrets/c1/beta.pem",
		KeyPath:     keyPath,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialsRepo_SaveCredentialsError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO sunat_credentials`).
		WithArgs("c1", "PROD", "", "", "no-debe-aparecer", "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	err = postgres.NewCredentialsRepository(mock).SaveCredentials(context.Background(), &entity.Credentials{
		CompanyID: "c1", Environment: entity.EnvironmentProd, SolPassword: "no-debe-aparecer",
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.NotContains(t, err.Error(), "no-debe-aparecer", "el error no debe exponer secretos")
	assert.NoError(t, mock.ExpectationsWereMet())
}
