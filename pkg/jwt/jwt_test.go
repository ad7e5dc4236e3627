package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/stock-ledger/pkg/jwt"
)

const secret = "test-secret"

func TestGenerateAndParse(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "u1", "c1", pkgjwt.RoleOperator, "stock-ledger", 5)
	require.NoError(t, err)

	claims, err := pkgjwt.ParseClaims(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "c1", claims.CompanyID)
	assert.Equal(t, pkgjwt.RoleOperator, claims.Role)
	assert.Equal(t, "stock-ledger", claims.Issuer)
}

func TestParse_SinEmpresaEsInvalido(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "u1", "", pkgjwt.RoleAdmin, "x", 5)
	require.NoError(t, err)
	_, _, _, err = pkgjwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := pkgjwt.Generate("", "u1", "c1", pkgjwt.RoleAdmin, "x", 5)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "u1", "c1", pkgjwt.RoleAdmin, "x", -1)
	require.NoError(t, err)
	_, err = pkgjwt.ParseClaims(secret, tok)
	assert.Error(t, err)
	assert.True(t, pkgjwt.IsExpired(err))
}

func TestParse_OtraFirma(t *testing.T) {
	tok, err := pkgjwt.Generate("otro-secret", "u1", "c1", pkgjwt.RoleAdmin, "x", 5)
	require.NoError(t, err)
	_, err = pkgjwt.ParseClaims(secret, tok)
	assert.Error(t, err)
	assert.False(t, pkgjwt.IsExpired(err))
}

func TestHasRole(t *testing.T) {
	for _, r := range []string{pkgjwt.RoleAdmin, pkgjwt.RoleOperator, pkgjwt.RoleViewer} {
		assert.True(t, pkgjwt.HasRole(r), r)
	}
	assert.False(t, pkgjwt.HasRole("bodeguero"))
	assert.False(t, pkgjwt.HasRole(""))
}
