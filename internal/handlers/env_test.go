package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vberezin/storehub/internal/config"
	"github.com/vberezin/storehub/internal/hash"
	"github.com/vberezin/storehub/internal/logging"
	"github.com/vberezin/storehub/internal/models"
	"github.com/vberezin/storehub/internal/notify"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *captureMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *captureMailer) all() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMail, len(m.sent))
	copy(out, m.sent)
	return out
}

type testEnv struct {
	T          *testing.T
	E          *echo.Echo
	DB         *gorm.DB
	Mail       *captureMailer
	Dispatcher *notify.Dispatcher

	Catalog       *CatalogHandler
	Cart          *CartHandler
	Orders        *OrderHandler
	Deliveries    *DeliveryHandler
	Reviews       *ReviewHandler
	Support       *SupportHandler
	Notifications *NotificationHandler
	Auth          *AuthHandler
}

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	db := newTestDB(t)
	mail := &captureMailer{}
	dispatcher := notify.New(db, mail, nil, logging.New("error"))
	t.Cleanup(dispatcher.Close)

	uploadDir := t.TempDir()
	return &testEnv{
		T:          t,
		E:          echo.New(),
		DB:         db,
		Mail:       mail,
		Dispatcher: dispatcher,

		Catalog:       &CatalogHandler{DB: db, UploadDir: uploadDir, Index: "product"},
		Cart:          &CartHandler{DB: db},
		Orders:        &OrderHandler{DB: db, Dispatcher: dispatcher, UploadDir: uploadDir, AdminEmail: "ops@storehub.local"},
		Deliveries:    &DeliveryHandler{DB: db, Dispatcher: dispatcher},
		Reviews:       &ReviewHandler{DB: db},
		Support:       &SupportHandler{DB: db, Dispatcher: dispatcher},
		Notifications: &NotificationHandler{DB: db},
		Auth:          &AuthHandler{DB: db, JWTSecret: []byte("test-secret")},
	}
}

func (env *testEnv) createUser(username, email, role string) models.User {
	pw, err := hash.HashPassword("password")
	require.NoError(env.T, err)
	user := models.User{Username: username, Email: email, PasswordHash: pw, Role: role}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return user
}

func asUser(c echo.Context, user models.User) {
	c.Set("userID", user.ID)
	c.Set("role", user.Role)
}

func (env *testEnv) doJSON(method, path string, body any) (*httptest.ResponseRecorder, echo.Context) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(env.T, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, env.E.NewContext(req, rec)
}

// doForm builds a multipart request; files maps field name to file name,
// each with a small fixed payload.
func (env *testEnv) doForm(method, path string, fields map[string]string, files map[string]string) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(env.T, w.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := w.CreateFormFile(field, name)
		require.NoError(env.T, err)
		_, err = fw.Write([]byte("test-bytes"))
		require.NoError(env.T, err)
	}
	require.NoError(env.T, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return rec, env.E.NewContext(req, rec)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (env *testEnv) notificationsFor(userID uint) []models.Notification {
	env.Dispatcher.Flush()
	var out []models.Notification
	require.NoError(env.T, env.DB.Where("user_id = ?", userID).Find(&out).Error)
	return out
}
