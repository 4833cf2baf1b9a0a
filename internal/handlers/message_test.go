package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"heistctf/internal/apperr"
	"heistctf/internal/logger"
	"heistctf/internal/middlewares"
	"heistctf/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type fakeMessageRepo struct {
	messages []models.Message
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	msg.ID = int64(len(f.messages) + 1)
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageRepo) ForUser(ctx context.Context, userID int) ([]models.Message, error) {
	return f.messages, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, messageID int64, recipientID int) error {
	for i := range f.messages {
		m := &f.messages[i]
		if m.ID == messageID && m.RecipientID != nil && *m.RecipientID == recipientID {
			m.IsRead = true
			return nil
		}
	}
	return apperr.New(apperr.KindNotFound, "message not found: %d", messageID)
}

type fakeUserRepo struct {
	users map[int]models.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, userID int) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found: %d", userID)
	}
	return &u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, req *models.RegisterRequest, hash string) (*models.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) List(ctx context.Context) ([]models.User, error) { return nil, nil }
func (f *fakeUserRepo) Update(ctx context.Context, userID int, update *models.AdminUserUpdate) error {
	return nil
}
func (f *fakeUserRepo) SetBlocked(ctx context.Context, userID int, blocked bool) error { return nil }
func (f *fakeUserRepo) SetMuted(ctx context.Context, userID int, muted bool) error     { return nil }
func (f *fakeUserRepo) SetTeam(ctx context.Context, userID int, teamID *int) error     { return nil }
func (f *fakeUserRepo) Delete(ctx context.Context, userID int) error                   { return nil }
func (f *fakeUserRepo) StoreRefreshToken(ctx context.Context, userID int, token string, expiresAt time.Time) error {
	return nil
}
func (f *fakeUserRepo) GetRefreshToken(ctx context.Context, token string) (int, error) {
	return 0, nil
}
func (f *fakeUserRepo) RevokeToken(ctx context.Context, token string) error { return nil }

func messageTestRouter(h *MessageHandler, userID int) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(middlewares.UserContextKey, userID) })
	router.POST("/api/messages", h.SendMessage)
	router.GET("/api/messages", h.GetMessages)
	router.PUT("/api/messages/:id/read", h.MarkRead)
	return router
}

func TestMarkMessageRead(t *testing.T) {
	recipient := 1
	msgRepo := &fakeMessageRepo{messages: []models.Message{
		{ID: 1, RecipientID: &recipient, Kind: models.MessagePrivate, Content: "The plan changed"},
	}}
	userRepo := &fakeUserRepo{users: map[int]models.User{1: {ID: 1, Username: "tokyo"}}}
	router := messageTestRouter(NewMessageHandler(msgRepo, userRepo, nil), 1)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/messages/1/read", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, msgRepo.messages[0].IsRead)
}

func TestMarkMessageReadOnlyRecipient(t *testing.T) {
	recipient := 2
	msgRepo := &fakeMessageRepo{messages: []models.Message{
		{ID: 1, RecipientID: &recipient, Kind: models.MessagePrivate, Content: "For berlin only"},
	}}
	userRepo := &fakeUserRepo{users: map[int]models.User{1: {ID: 1, Username: "tokyo"}}}
	router := messageTestRouter(NewMessageHandler(msgRepo, userRepo, nil), 1)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/messages/1/read", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, msgRepo.messages[0].IsRead)
}

func TestSendMessageMutedUser(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	userRepo := &fakeUserRepo{users: map[int]models.User{1: {ID: 1, Username: "tokyo", IsMuted: true}}}
	router := messageTestRouter(NewMessageHandler(msgRepo, userRepo, nil), 1)

	w := httptest.NewRecorder()
	body := strings.NewReader(`{"recipient_id": 2, "content": "psst"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, msgRepo.messages)
}

func TestSendBroadcastRequiresAdmin(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	userRepo := &fakeUserRepo{users: map[int]models.User{1: {ID: 1, Username: "tokyo", Role: models.RoleUser}}}
	router := messageTestRouter(NewMessageHandler(msgRepo, userRepo, nil), 1)

	w := httptest.NewRecorder()
	body := strings.NewReader(`{"kind": "broadcast", "content": "we are in"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, msgRepo.messages)
}
