package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"posts-api/db"
	"posts-api/models"
	"posts-api/utils"
)

type testConfig struct{}

func (testConfig) GetAllowedOrigins() []string { return []string{"http://localhost:3000"} }
func (testConfig) GetRateLimit() int { return 0 }
func (testConfig) ProfilingEnabled() bool { return false }

const validToken = "Bearer valid_token"

// fakeIdentity accepts validToken only and mirrors the identity service's
// 401 for anything else.
type fakeIdentity struct {
	userID string
}

func (f *fakeIdentity) Verify(_ context.Context, authorization string) (string, error) {
	switch authorization {
	case "":
		return "", utils.ErrMissingToken
	case validToken:
		return f.userID, nil
	default:
		return "", utils.ErrInvalidToken
	}
}

// countingStore records how many store calls a request made.
type countingStore struct {
	db.PostStore
	calls int
}

func (s *countingStore) CreatePost(ctx context.Context, post models.Post) error {
	s.calls++
	return s.PostStore.CreatePost(ctx, post)
}

func (s *countingStore) GetPost(ctx context.Context, id string) (models.Post, error) {
	s.calls++
	return s.PostStore.GetPost(ctx, id)
}

func (s *countingStore) DeletePost(ctx context.Context, id string) error {
	s.calls++
	return s.PostStore.DeletePost(ctx, id)
}

func (s *countingStore) ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	s.calls++
	return s.PostStore.ListPosts(ctx, filter)
}

type testServer struct {
	handler http.Handler
	store   *countingStore
	userID  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	conn, err := db.InitDB(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(ctx, conn, db.DriverSQLite))

	store := &countingStore{PostStore: db.NewSQLPostStore(conn, db.DriverSQLite)}
	userID := uuid.NewString()

	return &testServer{
		handler: SetupRoutes(context.Background(), testConfig{}, store, &fakeIdentity{userID: userID}),
		store:   store,
		userID:  userID,
	}
}

func (s *testServer) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(encoded)
		}
		reader = bytes.NewReader([]byte(raw))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T, post models.Post) models.Post {
	t.Helper()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	require.NoError(t, s.store.PostStore.CreatePost(context.Background(), post))
	return post
}

func seedPost(routeID, userID string, expireIn time.Duration) models.Post {
	now := time.Now().UTC().Truncate(time.Second)
	return models.Post{
		RouteID:   routeID,
		UserID:    userID,
		ExpireAt:  now.Add(expireIn),
		CreatedAt: now.Add(-48 * time.Hour),
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreatePost(t *testing.T) {
	srv := newTestServer(t)
	routeID := uuid.NewString()
	expireAt := time.Now().UTC().Add(24 * time.Hour)

	rec := srv.do(t, http.MethodPost, "/posts", validToken, map[string]string{
		"routeId":  routeID,
		"expireAt": expireAt.Format(time.RFC3339Nano),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[map[string]string](t, rec)
	assert.Len(t, created, 3)
	assert.NoError(t, uuid.Validate(created["id"]))
	assert.Equal(t, srv.userID, created["userId"])

	createdAt, err := time.Parse(time.RFC3339, created["createdAt"])
	require.NoError(t, err)
	assert.Zero(t, createdAt.Nanosecond())

	rec = srv.do(t, http.MethodGet, "/posts/"+created["id"], validToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[map[string]string](t, rec)
	assert.Equal(t, created["id"], got["id"])
	assert.Equal(t, routeID, got["routeId"])
	assert.Equal(t, srv.userID, got["userId"])
	assert.Equal(t, created["createdAt"], got["createdAt"])
	assert.Equal(t, expireAt.Truncate(time.Second).Format(time.RFC3339), got["expireAt"])
}

func TestCreatePostIgnoresClientUserID(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/posts", validToken, map[string]string{
		"routeId":  uuid.NewString(),
		"userId":   "someone-else",
		"expireAt": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, srv.userID, decode[map[string]string](t, rec)["userId"])
}

func TestCreatePostExpirationNotAfterCreation(t *testing.T) {
	srv := newTestServer(t)

	for _, expireAt := range []time.Time{
		time.Now().Add(-24 * time.Hour),
		time.Now().Add(-time.Second),
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		{},
	} {
		rec := srv.do(t, http.MethodPost, "/posts", validToken, map[string]string{
			"routeId":  uuid.NewString(),
			"expireAt": expireAt.Format(time.RFC3339),
		})
		assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
		assert.Equal(t, "Invalid expiration date", decode[models.Message](t, rec).Msg)
	}
	assert.Zero(t, srv.store.calls)
}

func TestCreatePostBadRequest(t *testing.T) {
	srv := newTestServer(t)
	tomorrow := time.Now().Add(24 * time.Hour).Format(time.RFC3339)

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"missing route", map[string]string{"expireAt": tomorrow}, "routeId"},
		{"missing expiration", map[string]string{"routeId": uuid.NewString()}, "expireAt"},
		{"malformed expiration", map[string]string{"routeId": uuid.NewString(), "expireAt": "not-a-date"}, "expireAt"},
		{"numeric route", map[string]interface{}{"routeId": 7, "expireAt": tomorrow}, "routeId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/posts", validToken, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body struct {
				Msg map[string][]string `json:"msg"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Msg[tt.field])
		})
	}

	rec := srv.do(t, http.MethodPost, "/posts", validToken, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.store.calls)
}

func TestAuthenticationGate(t *testing.T) {
	srv := newTestServer(t)
	post := srv.seed(t, seedPost(uuid.NewString(), uuid.NewString(), time.Hour))

	requests := []struct {
		method string
		target string
		body   interface{}
	}{
		{http.MethodPost, "/posts", map[string]string{"routeId": uuid.NewString(), "expireAt": time.Now().Add(time.Hour).Format(time.RFC3339)}},
		{http.MethodGet, "/posts", nil},
		{http.MethodGet, "/posts/" + post.ID, nil},
		{http.MethodDelete, "/posts/" + post.ID, nil},
	}

	for _, r := range requests {
		t.Run(r.method+" "+r.target, func(t *testing.T) {
			rec := srv.do(t, r.method, r.target, "", r.body)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, "Token is required", decode[models.Message](t, rec).Msg)

			rec = srv.do(t, r.method, r.target, "Bearer invalid_token", r.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	assert.Zero(t, srv.store.calls)
}

func TestGetPost(t *testing.T) {
	srv := newTestServer(t)
	post := srv.seed(t, models.Post{
		ID:        "6225f5ac-687e-4e9a-8d95-405e2c94c125",
		RouteID:   uuid.NewString(),
		UserID:    uuid.NewString(),
		ExpireAt:  time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	})

	rec := srv.do(t, http.MethodGet, "/posts/"+post.ID, validToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Post](t, rec)
	assert.Equal(t, post.ID, got.ID)
	assert.True(t, post.ExpireAt.Equal(got.ExpireAt))

	rec = srv.do(t, http.MethodGet, "/posts/3", validToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid value for parameter 'id'.", decode[models.Message](t, rec).Msg)

	rec = srv.do(t, http.MethodGet, "/posts/"+uuid.NewString(), validToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Post not found.", decode[models.Message](t, rec).Msg)
}

func TestListPosts(t *testing.T) {
	srv := newTestServer(t)
	route := uuid.NewString()
	owner := uuid.NewString()

	active := srv.seed(t, seedPost(uuid.NewString(), uuid.NewString(), 24*time.Hour))
	expired := srv.seed(t, seedPost(uuid.NewString(), uuid.NewString(), -24*time.Hour))
	onRoute := srv.seed(t, seedPost(route, uuid.NewString(), 24*time.Hour))
	owned := srv.seed(t, seedPost(uuid.NewString(), owner, 24*time.Hour))
	mine := srv.seed(t, seedPost(uuid.NewString(), srv.userID, -24*time.Hour))

	ids := func(rec *httptest.ResponseRecorder) []string {
		posts := decode[[]models.Post](t, rec)
		out := make([]string, 0, len(posts))
		for _, p := range posts {
			out = append(out, p.ID)
		}
		return out
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no filters", "", []string{active.ID, expired.ID, onRoute.ID, owned.ID, mine.ID}},
		{"by route", "?route=" + route, []string{onRoute.ID}},
		{"by owner", "?owner=" + owner, []string{owned.ID}},
		{"owner me", "?owner=me", []string{mine.ID}},
		{"unknown owner", "?owner=nobody", []string{}},
		{"not expired", "?expire=false", []string{active.ID, onRoute.ID, owned.ID}},
		{"expired", "?expire=TRUE", []string{expired.ID, mine.ID}},
		{"combined", "?owner=me&expire=true", []string{mine.ID}},
		{"combined empty", "?owner=me&expire=false", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, "/posts"+tt.query, validToken, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.ElementsMatch(t, tt.want, ids(rec))
		})
	}
}

func TestListPostsEmptyIsArray(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/posts", validToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListPostsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	for _, query := range []string{
		"?foo=bar",
		"?route=" + uuid.NewString() + "&foo=bar",
		"?expire=true&owner=me&page=2",
		"?route=not-a-uuid",
		"?expire=maybe",
		"?foo=%zz",
		"?route=" + uuid.NewString() + "&owner=%zz",
		"?expire=true;owner=me",
	} {
		rec := srv.do(t, http.MethodGet, "/posts"+query, validToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
	assert.Zero(t, srv.store.calls)
}

func TestDeletePost(t *testing.T) {
	srv := newTestServer(t)
	post := srv.seed(t, seedPost(uuid.NewString(), uuid.NewString(), time.Hour))

	rec := srv.do(t, http.MethodDelete, "/posts/"+post.ID, validToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deleted", decode[models.Message](t, rec).Msg)

	rec = srv.do(t, http.MethodDelete, "/posts/"+post.ID, validToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/posts/"+post.ID, validToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/posts/"+uuid.NewString(), validToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/posts/abc", validToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetPosts(t *testing.T) {
	for _, count := range []int{0, 1, 5} {
		srv := newTestServer(t)
		for i := 0; i < count; i++ {
			srv.seed(t, seedPost(uuid.NewString(), uuid.NewString(), time.Duration(i-2)*time.Hour))
		}

		rec := srv.do(t, http.MethodPost, "/posts/reset", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "all data deleted", decode[models.Message](t, rec).Msg)

		posts, err := srv.store.PostStore.ListPosts(context.Background(), models.PostFilter{})
		require.NoError(t, err)
		assert.Empty(t, posts)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[models.Message](t, rec).Msg)
}

func TestUnsupportedMethod(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPut, "/posts/"+uuid.NewString(), validToken, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
