package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// as installs a fake identity the way JWTProtected would.
func as(userID uint, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("user_role", role)
		return c.Next()
	}
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var body envelope
	decodeResponse(t, resp, &body)
	return body
}
