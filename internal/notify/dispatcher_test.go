package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/models"
)

type recordedMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu    sync.Mutex
	fails int // number of Send calls that error before success
	sent  []recordedMail
	calls int
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.fails {
		return fmt.Errorf("smtp down")
	}
	m.sent = append(m.sent, recordedMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) all() []recordedMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedMail(nil), m.sent...)
}

func newTestDispatcher(t *testing.T, mail *fakeMailer) (*Dispatcher, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := New(db, mail, nil, log)
	d.backoff = time.Millisecond
	t.Cleanup(d.Close)
	return d, db
}

func TestDispatcherWritesNotificationRow(t *testing.T) {
	d, db := newTestDispatcher(t, &fakeMailer{})

	d.Enqueue(Job{UserID: 7, Message: "Order #1 created"})
	d.Flush()

	var notes []models.Notification
	require.NoError(t, db.Find(&notes).Error)
	require.Len(t, notes, 1)
	require.Equal(t, uint(7), notes[0].UserID)
	require.Equal(t, "Order #1 created", notes[0].Message)
	require.False(t, notes[0].Read)
}

func TestDispatcherSendsMailWithMessageFallback(t *testing.T) {
	mail := &fakeMailer{}
	d, _ := newTestDispatcher(t, mail)

	d.Enqueue(Job{
		UserID:  7,
		Message: "Order #1 created",
		Email:   "bob@example.com",
		Subject: "Order confirmation",
	})
	d.Flush()

	sent := mail.all()
	require.Len(t, sent, 1)
	require.Equal(t, "bob@example.com", sent[0].To)
	require.Equal(t, "Order confirmation", sent[0].Subject)
	// empty Body falls back to the notification message
	require.Equal(t, "Order #1 created", sent[0].Body)
}

func TestDispatcherRetriesMailUntilSuccess(t *testing.T) {
	mail := &fakeMailer{fails: 2}
	d, _ := newTestDispatcher(t, mail)

	d.Enqueue(Job{Email: "bob@example.com", Subject: "hi", Body: "hello"})
	d.Flush()

	require.Equal(t, 3, mail.calls)
	require.Len(t, mail.all(), 1)
}

func TestDispatcherDropsMailAfterRetriesExhausted(t *testing.T) {
	mail := &fakeMailer{fails: 100}
	d, _ := newTestDispatcher(t, mail)

	d.Enqueue(Job{Email: "bob@example.com", Subject: "hi", Body: "hello"})
	d.Flush()

	require.Equal(t, emailAttempts, mail.calls)
	require.Empty(t, mail.all())
}

func TestDispatcherSkipsRowWithoutRecipient(t *testing.T) {
	d, db := newTestDispatcher(t, &fakeMailer{})

	d.Enqueue(Job{Message: "no recipient"})
	d.Flush()

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)
}
