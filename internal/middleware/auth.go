package middleware

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/noteduco342/LectureQA-backend/internal/httpx"
	"github.com/noteduco342/LectureQA-backend/internal/models"
)

// Claims are minted by the platform auth service; this backend only
// verifies and reads them.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// mentorRoles are the claim roles granted full thread access.
var mentorRoles = map[string]bool{
	"teacher": true,
	"admin":   true,
}

func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		var tokenString string
		if authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return httpx.Unauthorized(c, "invalid_authorization", "Invalid authorization format")
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Cookies("qa_access")
		}

		if tokenString == "" {
			return httpx.Unauthorized(c, "missing_access_token", "Missing access token")
		}

		// Parse and validate token
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(os.Getenv("JWT_SECRET")), nil
		})

		if err != nil || !token.Valid {
			return httpx.Unauthorized(c, "invalid_access_token", "Invalid or expired token")
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			return httpx.Unauthorized(c, "invalid_access_token", "Invalid token")
		}

		// Store resolved identity in context. Per-thread roles
		// (student-owner vs other) are decided by the services against
		// the thread itself.
		c.Locals("userID", claims.UserID)
		c.Locals("email", claims.Email)
		c.Locals("isMentor", mentorRoles[strings.ToLower(claims.Role)])

		return c.Next()
	}
}

// RequireMentor guards mentor-only routes.
func RequireMentor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isMentor, _ := c.Locals("isMentor").(bool)
		if !isMentor {
			return httpx.Forbidden(c, "forbidden", "Insufficient permissions")
		}
		return c.Next()
	}
}

// ActorFromCtx builds the service-layer actor from request locals.
func ActorFromCtx(c *fiber.Ctx) (models.Actor, error) {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return models.Actor{}, err
	}
	isMentor, _ := c.Locals("isMentor").(bool)
	return models.Actor{ID: userID, IsMentor: isMentor}, nil
}
