package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/logging"
	"github.com/vberezin/storehub/internal/middleware/auth"
	"github.com/vberezin/storehub/internal/models"
	"github.com/vberezin/storehub/internal/notify"
	"github.com/vberezin/storehub/internal/sequence"
)

type SupportHandler struct {
	DB         *gorm.DB
	Dispatcher *notify.Dispatcher
}

func isStaff(role string) bool {
	return role == models.RoleAdmin || role == models.RoleAgent
}

func (h *SupportHandler) CreateTicket(c echo.Context) error {
	userID := auth.UserID(c)

	var req struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.Subject == "" {
		return errorJSON(c, http.StatusBadRequest, "subject is required")
	}

	ticket := models.SupportTicket{UserID: userID, Subject: req.Subject, Status: "open"}
	if err := h.DB.Create(&ticket).Error; err != nil {
		return internalError(c, err)
	}

	if req.Message != "" {
		id, err := sequence.Next(h.DB, sequence.ChatMessageCounter)
		if err != nil {
			return internalError(c, err)
		}
		msg := models.ChatMessage{
			ID:         id,
			TicketID:   ticket.ID,
			SenderID:   userID,
			SenderRole: auth.Role(c),
			Body:       req.Message,
		}
		if err := h.DB.Create(&msg).Error; err != nil {
			return internalError(c, err)
		}
	}

	return c.JSON(http.StatusCreated, ticket)
}

// ListTickets shows staff everything and customers their own.
func (h *SupportHandler) ListTickets(c echo.Context) error {
	q := h.DB.Order("created_at DESC")
	if !isStaff(auth.Role(c)) {
		q = q.Where("user_id = ?", auth.UserID(c))
	}
	var tickets []models.SupportTicket
	if err := q.Find(&tickets).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, tickets)
}

func (h *SupportHandler) loadTicket(c echo.Context) (*models.SupportTicket, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var ticket models.SupportTicket
	if err := h.DB.First(&ticket, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorJSON(c, http.StatusNotFound, "ticket not found")
		}
		return nil, internalError(c, err)
	}
	if ticket.UserID != auth.UserID(c) && !isStaff(auth.Role(c)) {
		return nil, errorJSON(c, http.StatusForbidden, "not your ticket")
	}
	return &ticket, nil
}

func (h *SupportHandler) GetTicket(c echo.Context) error {
	ticket, errResp := h.loadTicket(c)
	if ticket == nil {
		return errResp
	}

	var messages []models.ChatMessage
	if err := h.DB.Where("ticket_id = ?", ticket.ID).Order("id ASC").Find(&messages).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket": ticket, "messages": messages})
}

// PostMessage appends to the ticket chat. A staff reply pings the
// ticket owner with a notification and an email.
func (h *SupportHandler) PostMessage(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "support_message")

	ticket, errResp := h.loadTicket(c)
	if ticket == nil {
		return errResp
	}
	if ticket.Status != "open" {
		return errorJSON(c, http.StatusBadRequest, "ticket is closed")
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.Body == "" {
		return errorJSON(c, http.StatusBadRequest, "body is required")
	}

	id, err := sequence.Next(h.DB, sequence.ChatMessageCounter)
	if err != nil {
		return internalError(c, err)
	}

	senderID, senderRole := auth.UserID(c), auth.Role(c)
	msg := models.ChatMessage{
		ID:         id,
		TicketID:   ticket.ID,
		SenderID:   senderID,
		SenderRole: senderRole,
		Body:       req.Body,
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		return internalError(c, err)
	}

	if isStaff(senderRole) && ticket.UserID != senderID {
		var owner models.User
		if err := h.DB.First(&owner, ticket.UserID).Error; err != nil {
			l.Error("ticket owner lookup failed", "ticket_id", ticket.ID, "error", err)
		} else {
			h.Dispatcher.Enqueue(notify.Job{
				UserID:  owner.ID,
				Message: fmt.Sprintf("New reply on your support ticket #%d", ticket.ID),
				Email:   owner.Email,
				Subject: fmt.Sprintf("Support ticket #%d", ticket.ID),
				Body:    fmt.Sprintf("Support replied on ticket #%d (%s):\n\n%s", ticket.ID, ticket.Subject, req.Body),
				Topic:   "support_events",
				Key:     fmt.Sprint(ticket.ID),
				Event:   map[string]any{"type": "support_reply", "ticketID": ticket.ID, "messageID": msg.ID},
			})
		}
	}

	return c.JSON(http.StatusCreated, msg)
}

func (h *SupportHandler) CloseTicket(c echo.Context) error {
	ticket, errResp := h.loadTicket(c)
	if ticket == nil {
		return errResp
	}

	ticket.Status = "closed"
	if err := h.DB.Save(ticket).Error; err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}
