package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busfahrer/server/internal/auth"
	"github.com/busfahrer/server/internal/chat"
	"github.com/busfahrer/server/internal/friend"
	"github.com/busfahrer/server/internal/game"
	"github.com/busfahrer/server/internal/lobby"
	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/registry"
	"github.com/busfahrer/server/internal/store"
	"github.com/busfahrer/server/internal/uploads"
)

type testEnv struct {
	router *httprouter.Router
	st     store.Store
	signer *auth.Signer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	reg := registry.New()
	signer := auth.NewSigner("test-secret")
	lobbySvc := lobby.New(st, reg, 10)
	chatSvc := chat.New(st)
	friendSvc := friend.New(st)
	gameSvc := game.New(st, reg)
	up := uploads.NewStore(t.TempDir(), 1<<20)

	s := NewServer(signer, lobbySvc, chatSvc, friendSvc, gameSvc, up, st)
	router := httprouter.New()
	s.Register(router)

	return &testEnv{router: router, st: st, signer: signer}
}

func (e *testEnv) request(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		token, err := e.signer.Issue(userID, auth.DefaultTTL)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthedRejectsMissingCookie(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/get-lobbies", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthedRejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/get-lobbies", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateLobbyEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodPost, "/create-lobby", "u1", createLobbyRequest{
		Name:       "Friday",
		PlayerName: "Alice",
		Settings:   model.Settings{PlayerLimit: 6},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["lobbyId"])

	var l model.Lobby
	require.NoError(t, env.st.Read(context.Background(), "lobbies", resp["lobbyId"], &l))
	assert.Equal(t, "Alice", l.Players[0].Name)
}

func TestCreateLobbyRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.signer.Issue("u1", auth.DefaultTTL)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/create-lobby", bytes.NewBufferString("{not json"))
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Request Error", body.Title)
}

func TestCreateLobbyRejectsInvalidSettings(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodPost, "/create-lobby", "u1", createLobbyRequest{
		Name: "x", PlayerName: "Alice", Settings: model.Settings{PlayerLimit: 1},
	})
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestGetLobbyInfoRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	createRec := env.request(t, http.MethodPost, "/create-lobby", "u1", createLobbyRequest{
		Name: "lobby", PlayerName: "Alice", Settings: model.Settings{PlayerLimit: 6},
	})
	var created map[string]string
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	rec := env.request(t, http.MethodGet, "/get-lobby-info/"+created["lobbyId"], "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var l model.Lobby
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	assert.Equal(t, "lobby", l.Name)
}

func TestGetLobbyInfoMissingReturnsNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/get-lobby-info/ghost", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendChatMessageRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	createRec := env.request(t, http.MethodPost, "/create-lobby", "u1", createLobbyRequest{
		Name: "lobby", PlayerName: "Alice", Settings: model.Settings{PlayerLimit: 6},
	})
	var created map[string]string
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	rec := env.request(t, http.MethodPost, "/send-chat-message/"+created["lobbyId"], "intruder", sendChatMessageRequest{Message: "hi"})
	assert.NotEqual(t, http.StatusOK, rec.Code)
}
