package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

func decode(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestCronSecret(t *testing.T) {
	app := fiber.New()
	app.Post("/sweep", CronSecret("s3cret"), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})

	tests := []struct {
		name      string
		header    string
		wantCode  int
		wantError string
	}{
		{"missing header", "", fiber.StatusUnauthorized, "Unauthorized"},
		{"wrong scheme", "Basic s3cret", fiber.StatusUnauthorized, "Unauthorized"},
		{"wrong token", "Bearer nope", fiber.StatusUnauthorized, "Invalid token"},
		{"valid", "Bearer s3cret", fiber.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/sweep", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			code, body := decode(t, app, req)
			if code != tt.wantCode {
				t.Errorf("status = %d; want %d", code, tt.wantCode)
			}
			if tt.wantError != "" && body["error"] != tt.wantError {
				t.Errorf("error = %v; want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestCronSecretEmptySecretRejects(t *testing.T) {
	app := fiber.New()
	app.Post("/sweep", CronSecret(""), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("POST", "/sweep", nil)
	req.Header.Set("Authorization", "Bearer ")
	if code, _ := decode(t, app, req); code != fiber.StatusUnauthorized {
		t.Errorf("status = %d; want 401", code)
	}
}

func signed(t *testing.T, secret, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestAdminRoutes(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", Protected("jwt-secret"), AdminRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"no token", "", fiber.StatusBadRequest},
		{"bad signature", signed(t, "other", "admin"), fiber.StatusUnauthorized},
		{"not admin", signed(t, "jwt-secret", "student"), fiber.StatusForbidden},
		{"admin", signed(t, "jwt-secret", "admin"), fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			if code, _ := decode(t, app, req); code != tt.status {
				t.Errorf("status = %d; want %d", code, tt.status)
			}
		})
	}
}
