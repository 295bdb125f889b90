package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeResolver struct {
	token     string
	patientID uuid.UUID
}

func (f *fakeResolver) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	if token == f.token {
		return f.patientID, nil
	}
	return uuid.Nil, errors.New("session not found")
}

func newTestRouter(resolver SessionResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireSession(resolver), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"patient_id": PatientID(c).String()})
	})
	return r
}

func TestRequireSessionValidToken(t *testing.T) {
	patientID := uuid.New()
	r := newTestRouter(&fakeResolver{token: "good-token", patientID: patientID})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), patientID.String())
}

func TestRequireSessionMissingHeader(t *testing.T) {
	r := newTestRouter(&fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireSessionUnknownToken(t *testing.T) {
	r := newTestRouter(&fakeResolver{token: "good-token"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireSessionRejectsNonBearer(t *testing.T) {
	r := newTestRouter(&fakeResolver{token: "good-token"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	assert.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, CheckPassword(hash, "s3cret-password"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
