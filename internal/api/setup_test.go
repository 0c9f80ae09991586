package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	backend "blog-backend/internal/api"
	"blog-backend/internal/auth"
	"blog-backend/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func createDB(t *testing.T, create ...any) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, database.GetMigrator(db).Migrate())

	for _, c := range create {
		require.NoError(t, db.Create(c).Error)
	}

	return db
}

func testUser(t *testing.T, db *gorm.DB, superuser bool) *database.User {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	user := database.User{
		Id:             uuid.New(),
		Email:          uuid.NewString() + "@example.com",
		HashedPassword: hash,
		IsActive:       true,
		IsSuperuser:    superuser,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func accessToken(t *testing.T, user *database.User) string {
	t.Helper()

	token, err := auth.NewTokenManager(testSecret).IssueAccessToken(user.Id)
	require.NoError(t, err)
	return token
}

func authMiddleware(db *gorm.DB) func(http.Handler) http.Handler {
	return backend.AuthMiddleware(auth.NewTokenManager(testSecret), db)
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}
