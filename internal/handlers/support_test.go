package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vberezin/storehub/internal/models"
)

func (env *testEnv) openTicket(user models.User, subject, message string) models.SupportTicket {
	rec, c := env.doJSON(http.MethodPost, "/support/tickets", map[string]string{
		"subject": subject,
		"message": message,
	})
	asUser(c, user)
	require.NoError(env.T, env.Support.CreateTicket(c))
	require.Equal(env.T, http.StatusCreated, rec.Code)
	return decodeBody[models.SupportTicket](env.T, rec)
}

func TestCreateTicketRequiresSubject(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("bob", "bob@example.com", models.RoleCustomer)

	rec, c := env.doJSON(http.MethodPost, "/support/tickets", map[string]string{"message": "help"})
	asUser(c, user)
	require.NoError(t, env.Support.CreateTicket(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgentReplyNotifiesOwner(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("bob", "bob@example.com", models.RoleCustomer)
	agent := env.createUser("sam", "sam@example.com", models.RoleAgent)
	ticket := env.openTicket(user, "Broken order", "my order never arrived")

	rec, c := env.doJSON(http.MethodPost, "/", map[string]string{"body": "looking into it"})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(ticket.ID))
	asUser(c, agent)
	require.NoError(t, env.Support.PostMessage(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	notes := env.notificationsFor(user.ID)
	require.Len(t, notes, 1)
	require.Contains(t, notes[0].Message, fmt.Sprintf("ticket #%d", ticket.ID))

	mails := env.Mail.all()
	require.Len(t, mails, 1)
	require.Equal(t, "bob@example.com", mails[0].To)
}

func TestOwnReplyDoesNotNotify(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("bob", "bob@example.com", models.RoleCustomer)
	ticket := env.openTicket(user, "Question", "")

	rec, c := env.doJSON(http.MethodPost, "/", map[string]string{"body": "any update?"})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(ticket.ID))
	asUser(c, user)
	require.NoError(t, env.Support.PostMessage(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Empty(t, env.notificationsFor(user.ID))
	require.Empty(t, env.Mail.all())
}

func TestTicketVisibility(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("bob", "bob@example.com", models.RoleCustomer)
	other := env.createUser("eve", "eve@example.com", models.RoleCustomer)
	agent := env.createUser("sam", "sam@example.com", models.RoleAgent)
	ticket := env.openTicket(user, "Question", "hello")

	rec, c := env.doJSON(http.MethodGet, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(ticket.ID))
	asUser(c, other)
	require.NoError(t, env.Support.GetTicket(c))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, c = env.doJSON(http.MethodGet, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(ticket.ID))
	asUser(c, agent)
	require.NoError(t, env.Support.GetTicket(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestClosedTicketRejectsMessages(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("bob", "bob@example.com", models.RoleCustomer)
	agent := env.createUser("sam", "sam@example.com", models.RoleAgent)
	ticket := env.openTicket(user, "Question", "hello")

	rec, c := env.doJSON(http.MethodPut, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(ticket.ID))
	asUser(c, agent)
	require.NoError(t, env.Support.CloseTicket(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = env.doJSON(http.MethodPost, "/", map[string]string{"body": "one more thing"})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(ticket.ID))
	asUser(c, user)
	require.NoError(t, env.Support.PostMessage(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatMessageSequence(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("bob", "bob@example.com", models.RoleCustomer)
	t1 := env.openTicket(user, "First", "opening message")
	t2 := env.openTicket(user, "Second", "another opening message")

	rec, c := env.doJSON(http.MethodPost, "/", map[string]string{"body": "third message overall"})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(t2.ID))
	asUser(c, user)
	require.NoError(t, env.Support.PostMessage(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, uint(3), decodeBody[models.ChatMessage](t, rec).ID)

	var count int64
	require.NoError(t, env.DB.Model(&models.ChatMessage{}).Where("ticket_id = ?", t1.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
