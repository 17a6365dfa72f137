package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/hash"
	"github.com/vberezin/storehub/internal/logging"
	"github.com/vberezin/storehub/internal/middleware/auth"
	"github.com/vberezin/storehub/internal/models"
	"github.com/vberezin/storehub/internal/mykafka"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Producer  *mykafka.Producer
}

func accessCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     "accessToken",
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_register")

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "username and password are required")
	}

	var existing models.User
	if err := h.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		return errorJSON(c, http.StatusConflict, "user already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return internalError(c, err)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return internalError(c, err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         models.RoleCustomer,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return internalError(c, err)
	}

	l.Info("register_success", "user_id", user.ID)
	publish(c, h.Producer, "user_events", req.Username,
		map[string]any{"type": "user_registered", "userID": user.ID, "username": user.Username})

	return c.JSON(http.StatusCreated, echo.Map{
		"id": user.ID, "username": user.Username, "role": user.Role,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
		}
		return internalError(c, err)
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "user_id", user.ID)
		return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
	}

	token, err := auth.SignAccessToken(user.ID, user.Role, h.JWTSecret)
	if err != nil {
		return internalError(c, err)
	}
	c.SetCookie(accessCookie(token, time.Now().Add(auth.AccessTokenTTL)))

	l.Info("login_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"id": user.ID, "username": user.Username, "role": user.Role,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(accessCookie("", time.Unix(0, 0)))
	return c.NoContent(http.StatusNoContent)
}
