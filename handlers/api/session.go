package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"threadview/config"
	"threadview/middleware"
	"threadview/sendgate"
	"threadview/utils"
)

const identityKey = "identity"

// SessionHandler issues and validates the JWT session tokens that back
// the "authenticated local identity" every send requires.
type SessionHandler struct {
	config *config.Config
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(cfg *config.Config) *SessionHandler {
	return &SessionHandler{config: cfg}
}

// LoginRequest carries the login form.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionClaims struct {
	Address     string `json:"addr"`
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// HandleLogin checks credentials against the configured account and
// issues a session token.
func (h *SessionHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}
	if req.Username != h.config.Auth.Username {
		return utils.UnauthorizedError("Invalid credentials", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.config.Auth.PasswordHash), []byte(req.Password)); err != nil {
		return utils.UnauthorizedError("Invalid credentials", err)
	}

	claims := sessionClaims{
		Address:     h.config.Auth.Address,
		DisplayName: h.config.Auth.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.config.Auth.JWTSecret))
	if err != nil {
		return utils.InternalServerError("Failed to create session", err)
	}

	csrf := middleware.GenerateCSRFToken(c)

	utils.Log.Info("session issued: user=%s", req.Username)
	return c.JSON(fiber.Map{
		"token":      signed,
		"csrf_token": csrf,
	})
}

// AuthRequired validates the bearer token and stores the caller's
// identity in the request context.
func (h *SessionHandler) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			return utils.UnauthorizedError("Missing session token", nil)
		}

		var claims sessionClaims
		token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.config.Auth.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return utils.UnauthorizedError("Invalid session", err)
		}

		c.Locals(identityKey, &sendgate.Identity{
			Address:     claims.Address,
			DisplayName: claims.DisplayName,
		})
		c.Locals("owner", claims.Subject)
		return c.Next()
	}
}

// CallerIdentity extracts the identity stored by AuthRequired.
func CallerIdentity(c *fiber.Ctx) (*sendgate.Identity, string) {
	identity, _ := c.Locals(identityKey).(*sendgate.Identity)
	owner, _ := c.Locals("owner").(string)
	return identity, owner
}
