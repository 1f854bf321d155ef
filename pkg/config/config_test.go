package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "18", cfg.SUNAT.IGVRate)
	assert.Equal(t, "BETA", cfg.SUNAT.DefaultEnvironment)
	assert.Equal(t, "REST", cfg.SUNAT.DispatchProtocol)
	assert.False(t, cfg.SUNAT.AllowPrivateEndpoints)
	assert.Equal(t, 10, cfg.DB.MaxConns)
	assert.Equal(t, "fs", cfg.Storage.Driver)
	assert.Equal(t, "sunat.transmissions", cfg.Kafka.Topic)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SUNAT_IGV_RATE", "10")
	t.Setenv("SUNAT_ALLOW_PRIVATE_ENDPOINTS", "true")
	t.Setenv("SUNAT_DEFAULT_ENVIRONMENT", "PROD")
	t.Setenv("SUNAT_PROD_BILL_SERVICE_URL", "https://proxy.example.com/billService")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "10", cfg.SUNAT.IGVRate)
	assert.True(t, cfg.SUNAT.AllowPrivateEndpoints)
	assert.Equal(t, "PROD", cfg.SUNAT.DefaultEnvironment)
	assert.Equal(t, "https://proxy.example.com/billService", cfg.SUNAT.Prod.BillServiceURL)
	assert.Equal(t, 25, cfg.DB.MaxConns)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORAGE_DRIVER", "gcs")

	_, err := config.Load()
	assert.ErrorContains(t, err, "STORAGE_GCS_BUCKET")
}

func TestDBConfig_DSNEscapesPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "sunat", SSLMode: "require"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/sunat?sslmode=require", c.DSN())
	assert.Equal(t, c.DSN(), c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}

// chdir cambia el directorio de trabajo durante el test y lo restaura al terminar.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
