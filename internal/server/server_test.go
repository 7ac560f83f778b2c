package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"convo-chat/config"
	"convo-chat/internal/domain/botreply"
	"convo-chat/internal/domain/user"
	"convo-chat/internal/handler"
	"convo-chat/internal/metrics"
	"convo-chat/internal/ratelimit"
	"convo-chat/internal/repository/memory"
	"convo-chat/internal/services"
	"convo-chat/internal/token"
	"convo-chat/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	store  *memory.Store
	server *Server
}

func newTestEnv(t *testing.T, opts RouteOptions) *testEnv {
	t.Helper()
	store := memory.New()
	l := logger.NewNop()

	users := services.NewUserService(store.Users(), store.Messages(), nil, l)
	broadcasts := services.NewBroadcastService(store.Users(), store.Messages(), store.BotReplies(), l,
		services.WithSleeper(func(context.Context, time.Duration) error { return nil }),
		services.WithMetrics(opts.Metrics))
	tokens := services.NewTokenService("1234", testSecret, time.Hour, nil)
	avatars := services.NewAvatarService(nil)

	srv := New(&config.Config{AppPort: "0", AppMode: TestMode}, l)
	srv.SetupRoutes(&Handlers{
		User:      handler.NewUserHandler(users),
		Broadcast: handler.NewBroadcastHandler(broadcasts),
		Token:     handler.NewTokenHandler(tokens),
		Upload:    handler.NewUploadHandler(avatars),
	}, opts)
	return &testEnv{store: store, server: srv}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestPingAndHealth(t *testing.T) {
	env := newTestEnv(t, RouteOptions{})
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "").Code)

	down := newTestEnv(t, RouteOptions{Health: func(context.Context) error { return errors.New("db down") }})
	w := down.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "db down", decode(t, w)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	env := newTestEnv(t, RouteOptions{Metrics: metrics.New(reg), Gatherer: reg})

	env.do(http.MethodGet, "/ping", "")
	w := env.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `convo_http_request_duration_seconds_count{method="GET",route="/ping",status="200"} 1`)
}

func TestAddAndCheckUser(t *testing.T) {
	env := newTestEnv(t, RouteOptions{})

	w := env.do(http.MethodPost, "/api/auth/add-user", `{"email":"a@example.com","name":"alice"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, user.DefaultProfilePicture, created["profilePicture"])
	assert.Equal(t, "", created["about"])

	w = env.do(http.MethodPost, "/api/auth/add-user", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email and name are required.", w.Body.String())

	w = env.do(http.MethodPost, "/api/auth/add-user", `{"email":"a@example.com","name":"again"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, false, decode(t, w)["status"])

	w = env.do(http.MethodPost, "/api/auth/check-user", `{"email":"a@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "User Found", body["msg"])
	assert.Equal(t, true, body["status"])
	assert.Equal(t, "alice", body["data"].(map[string]any)["name"])

	body = decode(t, env.do(http.MethodPost, "/api/auth/check-user", `{"email":"nobody@example.com"}`))
	assert.Equal(t, map[string]any{"msg": "User not found", "status": false}, body)

	body = decode(t, env.do(http.MethodPost, "/api/auth/check-user", `{}`))
	assert.Equal(t, map[string]any{"msg": "Email is required", "status": false}, body)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t, RouteOptions{})
	u := user.User{Email: "a@example.com", Name: "a"}
	require.NoError(t, env.store.Users().Create(context.Background(), &u))

	w := env.do(http.MethodDelete, "/api/auth/delete-user/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, "/api/auth/delete-user/"+strconv.Itoa(u.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"msg": "User deleted successfully", "status": true}, decode(t, w))

	w = env.do(http.MethodDelete, "/api/auth/delete-user/"+strconv.Itoa(u.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]any{"msg": "User not found", "status": false}, decode(t, w))
}

func TestBatchUsers(t *testing.T) {
	env := newTestEnv(t, RouteOptions{})

	w := env.do(http.MethodPost, "/api/auth/add-batch-users", `{"contacts":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"error": "No contacts provided."}, decode(t, w))

	w = env.do(http.MethodPost, "/api/auth/add-batch-users", `{"startingId":500,"contacts":[{"name":"Ann"},{"phoneNumber":"555"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"error": "Every contact needs a name."}, decode(t, w))

	w = env.do(http.MethodPost, "/api/auth/add-batch-users", `{"startingId":500,"contacts":[{"name":"Ann"},{"name":"Ben"}]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2 contacts created successfully.", decode(t, w)["message"])

	w = env.do(http.MethodPost, "/api/auth/add-batch-users", `{"startingId":500,"contacts":[{"name":"Other"}]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "0 contacts created successfully.", decode(t, w)["message"])

	w = env.do(http.MethodDelete, "/api/auth/delete-batch-users/500", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"message": "Contacts deleted.", "deletedCount": float64(2)}, decode(t, w))
}

func TestAddUserWithID(t *testing.T) {
	env := newTestEnv(t, RouteOptions{})

	w := env.do(http.MethodPost, "/api/auth/add-user-with-id", `{"id":5,"email":"a@example.com","name":"a"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ID must be provided and >= 100", decode(t, w)["msg"])

	w = env.do(http.MethodPost, "/api/auth/add-user-with-id", `{"id":150,"name":"a"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email and name are required", decode(t, w)["msg"])

	w = env.do(http.MethodPost, "/api/auth/add-user-with-id", `{"id":"150","email":"a@example.com","name":"a"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(150), decode(t, w)["user"].(map[string]any)["id"])

	w = env.do(http.MethodPost, "/api/auth/add-user-with-id", `{"id":150,"email":"b@example.com","name":"b"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User ID already exists", decode(t, w)["msg"])
}

func TestOnboardUser(t *testing.T) {
	env := newTestEnv(t, RouteOptions{})

	w := env.do(http.MethodPost, "/api/auth/onboard-user", `{"email":"a@example.com","name":"a"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"msg": "Email, Name and Image are required", "status": false}, decode(t, w))

	w = env.do(http.MethodPost, "/api/auth/onboard-user", `{"email":"a@example.com","name":"a","image":"/a.png"}`)
	assert.Equal(t, map[string]any{"msg": "Success", "status": true}, decode(t, w))

	u, err := env.store.Users().GetUserByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.DefaultOnboardAbout, u.About)
}

func TestGetContactsGroupsByInitial(t *testing.T) {
	env := newTestEnv(t, RouteOptions{})
	for _, name := range []string{"alice", "Aaron", "bob"} {
		w := env.do(http.MethodPost, "/api/auth/add-user", `{"email":"`+name+`@example.com","name":"`+name+`"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(http.MethodGet, "/api/auth/get-contacts", "")
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode(t, w)["users"].(map[string]any)
	assert.Len(t, groups["A"], 2)
	assert.Len(t, groups["B"], 1)
}

func TestBroadcastEndpoint(t *testing.T) {
	m := metrics.New(nil)
	env := newTestEnv(t, RouteOptions{Metrics: m})
	ctx := context.Background()

	w := env.do(http.MethodPost, "/api/auth/broadcast", `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"message": "Both message and senderId are required."}, decode(t, w))

	w = env.do(http.MethodPost, "/api/auth/broadcast", `{"message":"hi","senderId":10}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"message": "No users to broadcast to."}, decode(t, w))

	for _, id := range []int{1, 2, 10, 11, 12} {
		u := user.User{ID: id, Email: "u" + strconv.Itoa(id) + "@example.com", Name: "u"}
		require.NoError(t, env.store.Users().Create(ctx, &u))
	}
	require.NoError(t, env.store.BotReplies().CreateMany(ctx, []botreply.BotReply{{Content: "a"}, {Content: "b"}, {Content: "c"}}))

	w = env.do(http.MethodPost, "/api/auth/broadcast", `{"message":"hi","senderId":"10","botCount":3,"botDelays":[0,"0",0]}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Broadcasted successfully.", body["message"])
	assert.Equal(t, true, body["status"])
	report := body["report"].(map[string]any)
	assert.Equal(t, float64(3), report["recipients"])
	assert.Len(t, report["bots"], 3)

	assert.Len(t, env.store.AllMessages(), 3+3*5)
}

func TestBroadcastToleratesScalarBotDelays(t *testing.T) {
	for _, delays := range []string{`500`, `"500"`} {
		env := newTestEnv(t, RouteOptions{})
		ctx := context.Background()
		for _, id := range []int{1, 2, 10} {
			u := user.User{ID: id, Email: "u" + strconv.Itoa(id) + "@example.com", Name: "u"}
			require.NoError(t, env.store.Users().Create(ctx, &u))
		}
		require.NoError(t, env.store.BotReplies().CreateMany(ctx, []botreply.BotReply{{Content: "a"}}))

		w := env.do(http.MethodPost, "/api/auth/broadcast", `{"message":"hi","senderId":10,"botCount":1,"botDelays":`+delays+`}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "Broadcasted successfully.", decode(t, w)["message"])

		// one sender message to user 10, then bot 3 to all three users
		msgs := env.store.AllMessages()
		require.Len(t, msgs, 4, delays)
		for _, m := range msgs[1:] {
			assert.Equal(t, 3, m.SenderID)
			assert.Equal(t, "a", m.Message)
		}
	}
}

func TestBroadcastIsRateLimited(t *testing.T) {
	env := newTestEnv(t, RouteOptions{BroadcastLimiter: ratelimit.NewLocal(1, time.Hour)})

	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/auth/broadcast", `{"message":"hi","senderId":1}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(http.MethodPost, "/api/auth/broadcast", `{"message":"hi","senderId":1}`).Code)
}

func TestGenerateToken(t *testing.T) {
	env := newTestEnv(t, RouteOptions{})

	w := env.do(http.MethodGet, "/api/auth/generate-token/42", "")
	require.Equal(t, http.StatusOK, w.Code)
	tok := decode(t, w)["token"].(string)

	claims, err := token.DecodeZego04(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.EqualValues(t, 1234, claims.AppID)
}

func TestAvatarUploadWithoutStorage(t *testing.T) {
	env := newTestEnv(t, RouteOptions{})

	w := env.do(http.MethodPost, "/api/auth/avatar/upload-url", `{"fileName":"a.png","contentType":"image/png"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(http.MethodPost, "/api/auth/avatar/upload-url", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
