package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stock-ledger/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testCompanyID = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "stock-ledger-test"
	testExpMin    = 60
)

// tokenForRole header Authorization completo para el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testCompanyID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

// guardedApp expone /guarded con AuthMiddleware + RequireRole(roles...); el handler devuelve los locals.
func guardedApp(roles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/guarded",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(roles...),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"user_id":    apphttp.GetUserID(c),
				"company_id": apphttp.GetCompanyID(c),
				"role":       apphttp.GetRole(c),
			})
		},
	)
	return app
}

func call(t *testing.T, app *fiber.App, authHeader string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if authHeader != "" {
		req.Header.Set(fiber.HeaderAuthorization, authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body := map[string]string{}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func signed(t *testing.T, secret, companyID, role string, expMin int) string {
	t.Helper()
	tok, err := pkgjwt.Generate(secret, testUserID, companyID, role, testIssuer, expMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthMiddleware
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_RechazaCredenciales(t *testing.T) {
	app := guardedApp(pkgjwt.RoleAdmin)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"sin header", "", "MISSING_TOKEN"},
		{"esquema distinto", "Basic dXNlcjpwYXNz", "INVALID_TOKEN"},
		{"bearer vacío", "Bearer   ", "INVALID_TOKEN"},
		{"token malformado", "Bearer token.invalido.aqui", "INVALID_TOKEN"},
		{"otra firma", signed(t, "otro-secreto", testCompanyID, pkgjwt.RoleAdmin, testExpMin), "INVALID_TOKEN"},
		{"sin empresa", signed(t, testJWTSecret, "", pkgjwt.RoleAdmin, testExpMin), "INVALID_TOKEN"},
		{"vencido", signed(t, testJWTSecret, testCompanyID, pkgjwt.RoleAdmin, -5), "TOKEN_EXPIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, tt.header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestAuthMiddleware_CargaClaimsEnLocals(t *testing.T) {
	status, body := call(t, guardedApp(pkgjwt.RoleOperator), "bearer "+tokenForRole(t, pkgjwt.RoleOperator)[len("Bearer "):])
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testCompanyID, body["company_id"])
	assert.Equal(t, pkgjwt.RoleOperator, body["role"])
}

// ──────────────────────────────────────────────────────────────────────────────
// RequireRole: matriz de permisos de la API
// ──────────────────────────────────────────────────────────────────────────────

func TestRequireRole_Matriz(t *testing.T) {
	readers := []string{pkgjwt.RoleAdmin, pkgjwt.RoleOperator, pkgjwt.RoleViewer}
	writers := []string{pkgjwt.RoleAdmin, pkgjwt.RoleOperator}
	admins := []string{pkgjwt.RoleAdmin}

	tests := []struct {
		role    string
		allowed []string
		want    int
	}{
		{pkgjwt.RoleViewer, readers, http.StatusOK},
		{pkgjwt.RoleViewer, writers, http.StatusForbidden},
		{pkgjwt.RoleOperator, writers, http.StatusOK},
		{pkgjwt.RoleOperator, admins, http.StatusForbidden},
		{pkgjwt.RoleAdmin, admins, http.StatusOK},
		{"bodeguero", readers, http.StatusForbidden},
		{"", readers, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.allowed[len(tt.allowed)-1], func(t *testing.T) {
			status, body := call(t, guardedApp(tt.allowed...), tokenForRole(t, tt.role))
			assert.Equal(t, tt.want, status)
			switch tt.want {
			case http.StatusForbidden:
				assert.Equal(t, "FORBIDDEN", body["code"])
			case http.StatusUnauthorized:
				assert.Equal(t, "MISSING_ROLE", body["code"])
			}
		})
	}
}

func TestRequireRole_RespuestaUsaErrorResponse(t *testing.T) {
	app := guardedApp(pkgjwt.RoleAdmin)
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(fiber.HeaderAuthorization, tokenForRole(t, pkgjwt.RoleViewer))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "FORBIDDEN", body.Code)
	assert.Contains(t, body.Message, pkgjwt.RoleViewer)
}
