package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

// Locals keys para UserID, CompanyID y Role en Fiber.
const (
	LocalUserID    = "user_id"
	LocalCompanyID = "company_id"
	LocalRole      = "role"
)

func authError(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// bearerToken extrae el token de "Bearer <token>" (prefijo sin distinguir mayúsculas).
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthMiddleware valida el JWT y deja usuario, empresa (tenant) y rol en c.Locals.
// Todas las consultas posteriores se filtran por esa empresa.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return authError(c, "MISSING_TOKEN", "Authorization header requerido")
		}
		token, ok := bearerToken(header)
		if !ok {
			return authError(c, "INVALID_TOKEN", "formato: Bearer <token>")
		}
		claims, err := jwt.ParseClaims(jwtSecret, token)
		if err != nil {
			if jwt.IsExpired(err) {
				return authError(c, "TOKEN_EXPIRED", "token expirado")
			}
			return authError(c, "INVALID_TOKEN", "token inválido")
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalCompanyID, claims.CompanyID)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

// RequireRole deja pasar solo los roles indicados; va después de AuthMiddleware.
// Sin rol → 401 MISSING_ROLE; rol desconocido o no permitido → 403 FORBIDDEN.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		switch {
		case role == "":
			return authError(c, "MISSING_ROLE", "el token no incluye rol")
		case !jwt.HasRole(role) || !allowed[role]:
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "el rol " + role + " no puede realizar esta operación"})
		}
		return c.Next()
	}
}

func localString(c *fiber.Ctx, key string) string {
	s, _ := c.Locals(key).(string)
	return s
}

// GetUserID usuario del token.
func GetUserID(c *fiber.Ctx) string { return localString(c, LocalUserID) }

// GetCompanyID empresa del token.
func GetCompanyID(c *fiber.Ctx) string { return localString(c, LocalCompanyID) }

func GetRole(c *fiber.Ctx) string { return localString(c, LocalRole) }
