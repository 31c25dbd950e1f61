package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/campus-evote-api/internal/utils"
)

// JWTProtected validates bearer tokens issued by the auth service and exposes the subject as
// the user_id local and the role claim as user_role. Stream endpoints cannot always send
// headers, so an access_token query parameter is accepted when allowQuery is true.
func JWTProtected(secret string, allowQuery ...bool) fiber.Handler {
	queryFallback := len(allowQuery) > 0 && allowQuery[0]

	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c, queryFallback)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		}, jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		userID, err := subjectFromClaims(claims)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}
		c.Locals("user_id", userID)

		if role, ok := claims["role"].(string); ok {
			c.Locals("user_role", strings.ToLower(strings.TrimSpace(role)))
		}

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx, queryFallback bool) (string, error) {
	authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if authorization == "" {
		if queryFallback {
			if token := strings.TrimSpace(c.Query("access_token")); token != "" {
				return token, nil
			}
		}
		return "", fmt.Errorf("authorization header missing")
	}

	const bearer = "bearer "
	if len(authorization) <= len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return "", fmt.Errorf("invalid authorization header")
	}

	token := strings.TrimSpace(authorization[len(bearer):])
	if token == "" {
		return "", fmt.Errorf("invalid token")
	}
	return token, nil
}

func subjectFromClaims(claims jwt.MapClaims) (uint, error) {
	switch v := claims["sub"].(type) {
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil || parsed == 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(parsed), nil
	case float64:
		if v <= 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}
