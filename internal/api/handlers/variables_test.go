package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varhold/varhold/internal/apperr"
	"github.com/varhold/varhold/internal/models"
	"github.com/varhold/varhold/internal/vars"
)

type mockVariableService struct {
	created   *vars.VariableWithData
	createErr error
	got       *vars.VariableWithData
	getErr    error
	list      []*models.Variable
	updated   *vars.VariableWithData
	updateErr error
	deleteErr error

	lastCreate vars.CreateInput
	lastUpdate vars.UpdateInput
}

func (m *mockVariableService) Create(_ context.Context, _ uuid.UUID, _ *models.Tier, in vars.CreateInput) (*vars.VariableWithData, error) {
	m.lastCreate = in
	return m.created, m.createErr
}

func (m *mockVariableService) Get(_ context.Context, _ uuid.UUID, _ uuid.UUID) (*vars.VariableWithData, error) {
	return m.got, m.getErr
}

func (m *mockVariableService) List(_ context.Context, _ uuid.UUID, page, pageSize int, _ string) ([]*models.Variable, int64, error) {
	return m.list, int64(len(m.list)), nil
}

func (m *mockVariableService) Update(_ context.Context, _ uuid.UUID, _ *models.Tier, _ uuid.UUID, in vars.UpdateInput) (*vars.VariableWithData, error) {
	m.lastUpdate = in
	return m.updated, m.updateErr
}

func (m *mockVariableService) Delete(_ context.Context, _ uuid.UUID, _ uuid.UUID) error {
	return m.deleteErr
}

type mockVariableResolver struct {
	variable *models.Variable
	err      error
}

func (m *mockVariableResolver) GetVariableByKey(_ context.Context, _ string, _ uuid.UUID) (*models.Variable, error) {
	return m.variable, m.err
}

func sampleVariable(userID uuid.UUID) *vars.VariableWithData {
	return &vars.VariableWithData{
		Variable: &models.Variable{
			ID:        uuid.New(),
			UserID:    userID,
			Key:       "db_config",
			SizeBytes: 13,
			Version:   1,
		},
		Data: json.RawMessage(`{"host":"db"}`),
	}
}

func TestVariablesCreate(t *testing.T) {
	identity := testIdentity()
	svc := &mockVariableService{created: sampleVariable(identity.UserID)}
	r := newTestRouter(identity)
	NewVariablesHandler(svc, &mockVariableResolver{}, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1"))

	w := doRequest(r, "POST", "/api/v1/variables",
		`{"key":"db_config","data":{"host":"db"},"tags":["infra"]}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "db_config", svc.lastCreate.Key)
	assert.Equal(t, []string{"infra"}, svc.lastCreate.Tags)

	var resp vars.VariableWithData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Version)
	assert.JSONEq(t, `{"host":"db"}`, string(resp.Data))
}

func TestVariablesCreateMissingFields(t *testing.T) {
	identity := testIdentity()
	r := newTestRouter(identity)
	NewVariablesHandler(&mockVariableService{}, &mockVariableResolver{}, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1"))

	w := doRequest(r, "POST", "/api/v1/variables", `{"key":"only-key"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVariablesCreateQuotaExceeded(t *testing.T) {
	identity := testIdentity()
	svc := &mockVariableService{
		createErr: apperr.Newf(apperr.KindQuotaExceeded, "maximum %d variables allowed", 50),
	}
	r := newTestRouter(identity)
	NewVariablesHandler(svc, &mockVariableResolver{}, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1"))

	w := doRequest(r, "POST", "/api/v1/variables", `{"key":"k","data":{}}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "maximum 50 variables allowed")
}

func TestVariablesCreateConflict(t *testing.T) {
	identity := testIdentity()
	svc := &mockVariableService{
		createErr: apperr.New(apperr.KindConflict, "variable key already exists"),
	}
	r := newTestRouter(identity)
	NewVariablesHandler(svc, &mockVariableResolver{}, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1"))

	w := doRequest(r, "POST", "/api/v1/variables", `{"key":"k","data":{}}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestVariablesGet(t *testing.T) {
	identity := testIdentity()
	variable := sampleVariable(identity.UserID)
	svc := &mockVariableService{got: variable}
	r := newTestRouter(identity)
	NewVariablesHandler(svc, &mockVariableResolver{}, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1"))

	w := doRequest(r, "GET", "/api/v1/variables/"+variable.ID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, "GET", "/api/v1/variables/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVariablesGetNotFound(t *testing.T) {
	identity := testIdentity()
	svc := &mockVariableService{getErr: apperr.New(apperr.KindNotFound, "variable not found")}
	r := newTestRouter(identity)
	NewVariablesHandler(svc, &mockVariableResolver{}, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1"))

	w := doRequest(r, "GET", "/api/v1/variables/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVariablesGetByKey(t *testing.T) {
	identity := testIdentity()
	variable := sampleVariable(identity.UserID)
	svc := &mockVariableService{got: variable}
	resolver := &mockVariableResolver{variable: variable.Variable}
	r := newTestRouter(identity)
	NewVariablesHandler(svc, resolver, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1"))

	w := doRequest(r, "GET", "/api/v1/variables/by-key/db_config", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "db_config")
}

func TestVariablesList(t *testing.T) {
	identity := testIdentity()
	svc := &mockVariableService{list: []*models.Variable{
		{ID: uuid.New(), UserID: identity.UserID, Key: "one"},
		{ID: uuid.New(), UserID: identity.UserID, Key: "two"},
	}}
	r := newTestRouter(identity)
	NewVariablesHandler(svc, &mockVariableResolver{}, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1"))

	w := doRequest(r, "GET", "/api/v1/variables?page=1&page_size=10", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Variables []*models.Variable `json:"variables"`
		Total     int64              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Variables, 2)
	assert.Equal(t, int64(2), resp.Total)
}

func TestVariablesUpdate(t *testing.T) {
	identity := testIdentity()
	updated := sampleVariable(identity.UserID)
	updated.Version = 2
	svc := &mockVariableService{updated: updated}
	r := newTestRouter(identity)
	NewVariablesHandler(svc, &mockVariableResolver{}, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1"))

	w := doRequest(r, "PATCH", "/api/v1/variables/"+updated.ID.String(),
		`{"description":"new desc"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastUpdate.Description)
	assert.Equal(t, "new desc", *svc.lastUpdate.Description)
	assert.Nil(t, svc.lastUpdate.Data)
}

func TestVariablesDelete(t *testing.T) {
	identity := testIdentity()
	svc := &mockVariableService{}
	r := newTestRouter(identity)
	NewVariablesHandler(svc, &mockVariableResolver{}, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1"))

	w := doRequest(r, "DELETE", "/api/v1/variables/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	svc.deleteErr = apperr.New(apperr.KindNotFound, "variable not found")
	w = doRequest(r, "DELETE", "/api/v1/variables/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
