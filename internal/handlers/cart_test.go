package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vberezin/storehub/internal/models"
)

func TestAddToCartSnapshotsPriceAndMerges(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("bob", "bob@example.com", models.RoleCustomer)
	env.seedProduct(1)

	rec, c := env.doJSON(http.MethodPost, "/cart", map[string]any{"product_id": 1, "quantity": 2})
	asUser(c, user)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	item := decodeBody[models.CartItem](t, rec)
	require.EqualValues(t, 2, item.Quantity)
	require.Equal(t, float64(100), item.UnitPrice)

	// adding the same product again merges into one line
	rec, c = env.doJSON(http.MethodPost, "/cart", map[string]any{"product_id": 1, "quantity": 1})
	asUser(c, user)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 3, decodeBody[models.CartItem](t, rec).Quantity)

	var count int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("bob", "bob@example.com", models.RoleCustomer)

	rec, c := env.doJSON(http.MethodPost, "/cart", map[string]any{"product_id": 9})
	asUser(c, user)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveOneFromCart(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("bob", "bob@example.com", models.RoleCustomer)
	item := models.CartItem{UserID: user.ID, ProductID: 1, Quantity: 2, UnitPrice: 50}
	require.NoError(t, env.DB.Create(&item).Error)

	rec, c := env.doJSON(http.MethodDelete, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	asUser(c, user)
	require.NoError(t, env.Cart.RemoveOne(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, decodeBody[models.CartItem](t, rec).Quantity)

	// second removal deletes the line
	rec, c = env.doJSON(http.MethodDelete, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	asUser(c, user)
	require.NoError(t, env.Cart.RemoveOne(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestRemoveOneOtherUsersItem(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser("bob", "bob@example.com", models.RoleCustomer)
	other := env.createUser("eve", "eve@example.com", models.RoleCustomer)
	item := models.CartItem{UserID: owner.ID, ProductID: 1, Quantity: 1, UnitPrice: 50}
	require.NoError(t, env.DB.Create(&item).Error)

	rec, c := env.doJSON(http.MethodDelete, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	asUser(c, other)
	require.NoError(t, env.Cart.RemoveOne(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearCart(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("bob", "bob@example.com", models.RoleCustomer)
	env.seedCart(user, 1, 1, 10)
	env.seedCart(user, 2, 3, 20)

	rec, c := env.doJSON(http.MethodDelete, "/cart", nil)
	asUser(c, user)
	require.NoError(t, env.Cart.ClearCart(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Zero(t, count)
}
