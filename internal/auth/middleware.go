package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ah-malik/SkyGloss-backend/internal/httpx"
)

// Roles the backend distinguishes. Identity itself is issued elsewhere;
// this package only resolves who is calling and with which role.
const (
	RoleShop        = "shop"
	RoleDistributor = "distributor"
	RoleAdmin       = "admin"
)

const (
	localUserID = "userID"
	localRole   = "role"
)

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type Middleware struct {
	secret []byte
}

func NewMiddleware(secret string) *Middleware {
	return &Middleware{secret: []byte(secret)}
}

// Authenticate validates the Bearer token and stores the requester identity
// in request locals for downstream handlers.
func (m *Middleware) Authenticate(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return httpx.UnauthorizedResponse(c, "Missing bearer token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return httpx.UnauthorizedResponse(c, "Invalid or expired token")
	}
	if claims.Subject == "" {
		return httpx.UnauthorizedResponse(c, "Token carries no subject")
	}

	c.Locals(localUserID, claims.Subject)
	c.Locals(localRole, claims.Role)
	return c.Next()
}

// RequireRoles guards a route group to the listed roles.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := Role(c)
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return httpx.ForbiddenResponse(c, "Insufficient role")
	}
}

func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func Role(c *fiber.Ctx) string {
	role, _ := c.Locals(localRole).(string)
	return role
}
