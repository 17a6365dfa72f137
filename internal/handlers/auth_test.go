package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vberezin/storehub/internal/models"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(http.MethodPost, "/auth/register", map[string]string{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "secret",
	})
	require.NoError(t, env.Auth.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	require.NoError(t, env.DB.Where("username = ?", "bob").First(&user).Error)
	require.Equal(t, models.RoleCustomer, user.Role)
	require.NotEqual(t, "secret", user.PasswordHash)

	rec, c = env.doJSON(http.MethodPost, "/auth/login", map[string]string{
		"username": "bob",
		"password": "secret",
	})
	require.NoError(t, env.Auth.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, "accessToken", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("bob", "bob@example.com", models.RoleCustomer)

	rec, c := env.doJSON(http.MethodPost, "/auth/register", map[string]string{
		"username": "bob",
		"password": "secret",
	})
	require.NoError(t, env.Auth.Register(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("bob", "bob@example.com", models.RoleCustomer)

	rec, c := env.doJSON(http.MethodPost, "/auth/login", map[string]string{
		"username": "bob",
		"password": "wrong",
	})
	require.NoError(t, env.Auth.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotificationsListAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("bob", "bob@example.com", models.RoleCustomer)
	other := env.createUser("eve", "eve@example.com", models.RoleCustomer)

	n := models.Notification{UserID: user.ID, Message: "hello"}
	require.NoError(t, env.DB.Create(&n).Error)
	require.NoError(t, env.DB.Create(&models.Notification{UserID: other.ID, Message: "not yours"}).Error)

	rec, c := env.doJSON(http.MethodGet, "/notifications", nil)
	asUser(c, user)
	require.NoError(t, env.Notifications.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody[[]models.Notification](t, rec)
	require.Len(t, list, 1)
	require.False(t, list[0].Read)

	rec, c = env.doJSON(http.MethodPut, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, user)
	require.NoError(t, env.Notifications.MarkRead(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeBody[models.Notification](t, rec).Read)

	// cannot mark someone else's notification
	rec, c = env.doJSON(http.MethodPut, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues("2")
	asUser(c, user)
	require.NoError(t, env.Notifications.MarkRead(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
