package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/pkg/jwt"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	id := jwt.Identity{UserID: "u1", CompanyID: "c1", OrganizationID: "o1", Role: "org_admin"}
	token, err := jwt.Generate("secreto", id, "facturador-sunat", 5)
	require.NoError(t, err)

	got, err := jwt.Parse("secreto", token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParse_Rejects(t *testing.T) {
	token, err := jwt.Generate("secreto", jwt.Identity{UserID: "u1"}, "x", 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otro", token)
	assert.Error(t, err, "firma con otro secreto")

	expired, err := jwt.Generate("secreto", jwt.Identity{UserID: "u1"}, "x", -1)
	require.NoError(t, err)
	_, err = jwt.Parse("secreto", expired)
	assert.Error(t, err, "token expirado")

	_, err = jwt.Generate("", jwt.Identity{}, "x", 5)
	assert.Error(t, err)
}
