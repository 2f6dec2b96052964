package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/api/middleware"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/mocks"
	"github.com/phrazzld/jiralike-api/internal/platform/filestore"
	"github.com/phrazzld/jiralike-api/internal/service"
	"github.com/phrazzld/jiralike-api/internal/service/auth"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testPassword = "password123456"

// apiFixture wires the real services over the in-memory store behind the
// real router. Tokens are "token-<user id>".
type apiFixture struct {
	mem     *mocks.MemoryStore
	emitter *mocks.RecordingEmitter
	jwt     *mocks.MockJWTService
	router  http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mem := mocks.NewMemoryStore()
	tx := mocks.NewMockTxManager(mem)
	emitter := &mocks.RecordingEmitter{}
	storage, err := filestore.New(afero.NewMemMapFs(), "/files", log)
	require.NoError(t, err)

	tasks, err := service.NewTaskService(tx, mem.Tasks(), mem.Comments(), mem.Files(),
		mem.Subscriptions(), storage, emitter, log)
	require.NoError(t, err)
	users := service.NewUserService(mem.Users(), auth.NewBcryptVerifier(), tx, log)

	jwt := &mocks.MockJWTService{
		GenerateTokenFn: func(_ context.Context, userID uuid.UUID) (string, error) {
			return "token-" + userID.String(), nil
		},
		ValidateTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
			id, err := uuid.Parse(strings.TrimPrefix(token, "token-"))
			if err != nil || !strings.HasPrefix(token, "token-") {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Claims{UserID: id, TokenType: auth.TokenTypeAccess}, nil
		},
	}

	router := NewRouter(RouterDeps{
		Auth:           NewAuthHandler(users, jwt, log),
		Tasks:          NewTaskHandler(tasks, log),
		AuthMiddleware: middleware.NewAuthMiddleware(jwt, users),
		Logger:         log,
	})

	return &apiFixture{mem: mem, emitter: emitter, jwt: jwt, router: router}
}

func (f *apiFixture) user(t *testing.T, email, username string, superuser bool) (*domain.User, string) {
	t.Helper()
	u, err := domain.NewUser(email, username, testPassword)
	require.NoError(t, err)
	u.IsSuperuser = superuser
	require.NoError(t, f.mem.Users().Create(context.Background(), u))
	return u, "token-" + u.ID.String()
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *apiFixture) upload(t *testing.T, path, token, name, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}
