package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/aidecare/internal/auth"
	"github.com/your-org/aidecare/internal/models"
)

type fakeAccounts struct {
	patients    map[string]*models.Patient
	newHash     string
	newHashFor  uuid.UUID
	updateCalls int
}

func (f *fakeAccounts) CreatePatient(ctx context.Context, p *models.Patient) error {
	p.ID = uuid.New()
	return nil
}

func (f *fakeAccounts) GetPatient(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	for _, p := range f.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) GetPatientByEmail(ctx context.Context, email string) (*models.Patient, error) {
	return f.patients[email], nil
}

func (f *fakeAccounts) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	f.updateCalls++
	f.newHashFor = id
	f.newHash = hash
	return nil
}

type fakeSessions struct {
	token string
}

func (f *fakeSessions) Create(ctx context.Context, patientID uuid.UUID) (string, error) {
	return f.token, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, token string) error { return nil }

func authTestRouter(db *fakeAccounts) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(db, &fakeSessions{token: "tok"})
	r := gin.New()
	r.POST("/v1/auth/forgot-password", h.ForgotPassword)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestForgotPasswordResetsToTemporary(t *testing.T) {
	patient := &models.Patient{ID: uuid.New(), Email: "ada@example.com", PasswordHash: "old"}
	db := &fakeAccounts{patients: map[string]*models.Patient{patient.Email: patient}}
	r := authTestRouter(db)

	w := postJSON(t, r, "/v1/auth/forgot-password", gin.H{"email": patient.Email})

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Message           string `json:"message"`
		TemporaryPassword string `json:"temporary_password"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Message)
	require.NotEmpty(t, resp.TemporaryPassword)

	require.Equal(t, 1, db.updateCalls)
	assert.Equal(t, patient.ID, db.newHashFor)
	assert.True(t, auth.CheckPassword(db.newHash, resp.TemporaryPassword),
		"stored hash must match the returned temporary password")
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	db := &fakeAccounts{patients: map[string]*models.Patient{}}
	r := authTestRouter(db)

	w := postJSON(t, r, "/v1/auth/forgot-password", gin.H{"email": "nobody@example.com"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, db.updateCalls)
}

func TestForgotPasswordMissingEmail(t *testing.T) {
	db := &fakeAccounts{patients: map[string]*models.Patient{}}
	r := authTestRouter(db)

	w := postJSON(t, r, "/v1/auth/forgot-password", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, db.updateCalls)
}

func TestTemporaryPasswordIsRandom(t *testing.T) {
	a, err := auth.TemporaryPassword()
	require.NoError(t, err)
	b, err := auth.TemporaryPassword()
	require.NoError(t, err)

	assert.Len(t, a, 12)
	assert.NotEqual(t, a, b)
}
