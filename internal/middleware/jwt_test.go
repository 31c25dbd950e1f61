package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-evote-api/internal/middleware"
)

const testSecret = "middleware-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func identityApp(allowQuery bool) *fiber.App {
	app := fiber.New()
	app.Get("/", middleware.JWTProtected(testSecret, allowQuery), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": c.Locals("user_id"), "role": c.Locals("user_role")})
	})
	return app
}

func TestJWTProtectedExposesSubjectAndRole(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "42",
		"role": "Voter",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := identityApp(false).Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":42,"role":"voter"}`, string(body))
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	cases := map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()}),
		"expired":      "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(-time.Minute).Unix()}),
		"no expiry":    "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "1"}),
		"bad subject":  "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "abc", "exp": time.Now().Add(time.Hour).Unix()}),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := identityApp(false).Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestJWTProtectedQueryFallback(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "5", "role": "moderator", "exp": time.Now().Add(time.Hour).Unix()})

	resp, err := identityApp(true).Test(httptest.NewRequest(http.MethodGet, "/?access_token="+token, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = identityApp(false).Test(httptest.NewRequest(http.MethodGet, "/?access_token="+token, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
