package middleware

import (
	"context"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/pedalmarket/marketplace-backend/internal/logctx"
	"google.golang.org/api/option"
)

// TokenVerifier is the part of the Firebase auth client the middleware needs.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	isAdmin  func(uid string) bool
}

// NewAuthMiddleware builds the Firebase auth client. credentialsJSON may be empty to use
// application default credentials.
func NewAuthMiddleware(ctx context.Context, projectID, credentialsJSON string, isAdmin func(uid string) bool) (*AuthMiddleware, error) {
	if projectID == "" {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "FIREBASE_PROJECT_ID is not set")
	}
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return NewAuthMiddlewareWithVerifier(client, isAdmin), nil
}

func NewAuthMiddlewareWithVerifier(v TokenVerifier, isAdmin func(uid string) bool) *AuthMiddleware {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &AuthMiddleware{verifier: v, isAdmin: isAdmin}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authz := c.Request().Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		tokenStr := strings.TrimPrefix(authz, "Bearer ")
		token, err := m.verifier.VerifyIDToken(c.Request().Context(), tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		}
		c.Set("uid", token.UID)
		if email, ok := token.Claims["email"].(string); ok {
			c.Set("email", email)
		}
		admin, _ := token.Claims["admin"].(bool)
		c.Set("admin", admin)
		c.SetRequest(c.Request().WithContext(logctx.WithUID(c.Request().Context(), token.UID)))
		return next(c)
	}
}

// RequireAdmin must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, _ := c.Get("uid").(string)
		if uid == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		admin, _ := c.Get("admin").(bool)
		if !admin && !m.isAdmin(uid) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
		return next(c)
	}
}
