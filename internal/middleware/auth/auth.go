package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/vberezin/storehub/internal/models"
)

const AccessTokenTTL = 24 * time.Hour

type Middleware struct {
	JWTSecret []byte
}

func SignAccessToken(userID uint, role string, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"sub":  float64(userID),
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(AccessTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseCookie extracts user id and role from the accessToken cookie.
func ParseCookie(c echo.Context, secret []byte) (uint, string, error) {
	cookie, err := c.Cookie("accessToken")
	if err != nil {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
	}
	if cookie.Value == "" {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}

	token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}
	role, _ := claims["role"].(string)

	return uint(sub), role, nil
}

func (m *Middleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, role, err := ParseCookie(c, m.JWTSecret)
		if err != nil {
			return err
		}
		c.Set("userID", id)
		c.Set("role", role)
		return next(c)
	}
}

func (m *Middleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireRole(next, models.RoleAdmin)
}

func (m *Middleware) AgentOrAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireRole(next, models.RoleAgent, models.RoleAdmin)
}

func (m *Middleware) requireRole(next echo.HandlerFunc, roles ...string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, role, err := ParseCookie(c, m.JWTSecret)
		if err != nil {
			return err
		}
		for _, r := range roles {
			if role == r {
				c.Set("userID", id)
				c.Set("role", role)
				return next(c)
			}
		}
		return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
	}
}

// UserID reads the id placed on the context by the middleware above.
func UserID(c echo.Context) uint {
	if v, ok := c.Get("userID").(uint); ok {
		return v
	}
	return 0
}

func Role(c echo.Context) string {
	if v, ok := c.Get("role").(string); ok {
		return v
	}
	return ""
}
