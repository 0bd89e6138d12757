package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oficio-app/backend/internal/middleware"
	"github.com/oficio-app/backend/internal/models"
	"github.com/oficio-app/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubDerivation struct {
	result *services.DerivationResult
	err    error

	gotClient uuid.UUID
	gotInput  services.RequestInput
}

func (s *stubDerivation) CreateRequest(_ context.Context, clientID uuid.UUID, in services.RequestInput) (*services.DerivationResult, error) {
	s.gotClient, s.gotInput = clientID, in
	return s.result, s.err
}

func (s *stubDerivation) EditRequest(_ context.Context, clientID, _ uuid.UUID, in services.RequestInput) (*services.DerivationResult, error) {
	s.gotClient, s.gotInput = clientID, in
	return s.result, s.err
}

type stubLifecycle struct {
	request *models.ServiceRequest
	err     error
}

func (s *stubLifecycle) Complete(context.Context, uuid.UUID, uuid.UUID) (*models.ServiceRequest, error) {
	return s.request, s.err
}

func (s *stubLifecycle) Cancel(context.Context, uuid.UUID, uuid.UUID) (*models.ServiceRequest, error) {
	return s.request, s.err
}

type stubRequestReader struct {
	request *models.ServiceRequest
	list    []*models.ServiceRequest
	err     error
}

func (s *stubRequestReader) GetByID(context.Context, uuid.UUID) (*models.ServiceRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.request == nil {
		return nil, pgx.ErrNoRows
	}
	return s.request, nil
}

func (s *stubRequestReader) ListByClient(context.Context, uuid.UUID) ([]*models.ServiceRequest, error) {
	return s.list, s.err
}

type stubUnlocker struct {
	record   *models.UnlockRecord
	unlocked []*models.Lead
	err      error
}

func (s *stubUnlocker) Unlock(context.Context, uuid.UUID, uuid.UUID) (*models.UnlockRecord, error) {
	return s.record, s.err
}

func (s *stubUnlocker) UnlockedLeads(context.Context, uuid.UUID) ([]*models.Lead, error) {
	return s.unlocked, s.err
}

type stubLeadReader struct {
	lead *models.Lead
	feed []*models.Lead
}

func (s *stubLeadReader) GetByID(context.Context, uuid.UUID) (*models.Lead, error) {
	if s.lead == nil {
		return nil, pgx.ErrNoRows
	}
	return s.lead, nil
}

func (s *stubLeadReader) ListAvailable(context.Context, []string, uuid.UUID) ([]*models.Lead, error) {
	return s.feed, nil
}

func (s *stubLeadReader) ListByRequest(context.Context, uuid.UUID) ([]*models.Lead, error) {
	return s.feed, nil
}

type stubUnlockChecker struct{ unlocked bool }

func (s *stubUnlockChecker) Exists(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return s.unlocked, nil
}

type stubProfileReader struct {
	profile *models.ProfessionalProfile
}

func (s *stubProfileReader) GetByAccountID(context.Context, uuid.UUID) (*models.ProfessionalProfile, error) {
	if s.profile == nil {
		return nil, pgx.ErrNoRows
	}
	return s.profile, nil
}

func (s *stubProfileReader) Upsert(_ context.Context, p *models.ProfessionalProfile) error {
	s.profile = p
	return nil
}

type stubProposals struct {
	proposal *models.Proposal
	list     []*models.Proposal
	err      error
}

func (s *stubProposals) Submit(context.Context, uuid.UUID, uuid.UUID, services.ProposalInput) (*models.Proposal, error) {
	return s.proposal, s.err
}

func (s *stubProposals) Accept(context.Context, uuid.UUID, uuid.UUID) (*models.Proposal, error) {
	return s.proposal, s.err
}

func (s *stubProposals) Reject(context.Context, uuid.UUID, uuid.UUID) (*models.Proposal, error) {
	return s.proposal, s.err
}

func (s *stubProposals) ListForRequest(context.Context, uuid.UUID, uuid.UUID) ([]*models.Proposal, error) {
	return s.list, s.err
}

func (s *stubProposals) ListForProfessional(context.Context, uuid.UUID) ([]*models.Proposal, error) {
	return s.list, s.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func mustValidator(t *testing.T) *services.Validator {
	t.Helper()
	v, err := services.NewValidator()
	require.NoError(t, err)
	return v
}

// authed builds a request carrying a principal and an optional path value.
func authed(method, target, body string, accountID uuid.UUID, role string, pathID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithPrincipal(req.Context(), &middleware.Principal{AccountID: accountID, Role: role})
	req = req.WithContext(ctx)
	if pathID != "" {
		req.SetPathValue("id", pathID)
	}
	return req
}

const goodRequestBody = `{
	"title": "Fix bathroom leak",
	"description": "Pipe drips under the sink.",
	"region": "Seixal",
	"categories": ["plumbing"]
}`

// ---------------------------------------------------------------------------
// RequestHandler
// ---------------------------------------------------------------------------

func TestCreateRequestHandler(t *testing.T) {
	client := uuid.New()
	deriv := &stubDerivation{result: &services.DerivationResult{
		Request: &models.ServiceRequest{ID: uuid.New(), ClientID: client, Status: models.RequestStatusPending},
		Added:   []string{"plumbing"},
	}}
	h := &RequestHandler{Derivation: deriv, Validator: mustValidator(t)}

	rec := httptest.NewRecorder()
	h.CreateRequest(rec, authed(http.MethodPost, "/v1/requests", goodRequestBody, client, models.RoleClient, ""))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, client, deriv.gotClient)
	assert.Equal(t, []string{"plumbing"}, deriv.gotInput.Categories)

	var got services.DerivationResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, []string{"plumbing"}, got.Added)
}

func TestCreateRequestHandler_SchemaReject(t *testing.T) {
	h := &RequestHandler{Derivation: &stubDerivation{}, Validator: mustValidator(t)}

	bad := `{"title": "x", "description": "y", "region": "z", "categories": []}`
	rec := httptest.NewRecorder()
	h.CreateRequest(rec, authed(http.MethodPost, "/v1/requests", bad, uuid.New(), models.RoleClient, ""))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateRequestHandler_Unauthorized(t *testing.T) {
	h := &RequestHandler{Derivation: &stubDerivation{}, Validator: mustValidator(t)}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/requests", strings.NewReader(goodRequestBody))
	h.CreateRequest(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEditRequestHandler_ConflictMapping(t *testing.T) {
	h := &RequestHandler{
		Derivation: &stubDerivation{err: services.ErrEditNotAllowed},
		Validator:  mustValidator(t),
	}

	rec := httptest.NewRecorder()
	h.EditRequest(rec, authed(http.MethodPut, "/v1/requests/x", goodRequestBody, uuid.New(), models.RoleClient, uuid.NewString()))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetRequestHandler_OwnerOnly(t *testing.T) {
	owner := uuid.New()
	sr := &models.ServiceRequest{ID: uuid.New(), ClientID: owner}
	lead := &models.Lead{ID: uuid.New(), RequestID: sr.ID, Category: "plumbing", Cost: 8}
	h := &RequestHandler{
		Requests: &stubRequestReader{request: sr},
		Leads:    &stubLeadReader{feed: []*models.Lead{lead}},
	}

	rec := httptest.NewRecorder()
	h.GetRequest(rec, authed(http.MethodGet, "/v1/requests/x", "", owner, models.RoleClient, sr.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		ID    uuid.UUID      `json:"id"`
		Leads []*models.Lead `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, sr.ID, detail.ID)
	require.Len(t, detail.Leads, 1)
	assert.Equal(t, "plumbing", detail.Leads[0].Category)

	rec = httptest.NewRecorder()
	h.GetRequest(rec, authed(http.MethodGet, "/v1/requests/x", "", uuid.New(), models.RoleClient, sr.ID.String()))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCompleteRequestHandler_ErrorMapping(t *testing.T) {
	h := &RequestHandler{Lifecycle: &stubLifecycle{err: services.ErrRequestNotAccepting}}

	rec := httptest.NewRecorder()
	h.CompleteRequest(rec, authed(http.MethodPost, "/v1/requests/x/complete", "", uuid.New(), models.RoleClient, uuid.NewString()))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ---------------------------------------------------------------------------
// LeadHandler
// ---------------------------------------------------------------------------

func TestUnlockLeadHandler(t *testing.T) {
	professional := uuid.New()
	lead := &models.Lead{ID: uuid.New(), RequestID: uuid.New(), Category: "plumbing", Cost: 8}
	sr := &models.ServiceRequest{ID: lead.RequestID, Title: "Fix leak"}

	h := &LeadHandler{
		Leads:    &stubLeadReader{lead: lead},
		Unlock:   &stubUnlocker{record: &models.UnlockRecord{LeadID: lead.ID, ProfessionalID: professional, CostPaid: 8}},
		Requests: &stubRequestReader{request: sr},
	}

	rec := httptest.NewRecorder()
	h.UnlockLead(rec, authed(http.MethodPost, "/v1/leads/x/unlock", "", professional, models.RoleProfessional, lead.ID.String()))

	require.Equal(t, http.StatusCreated, rec.Code)
	var got struct {
		Unlock  *models.UnlockRecord   `json:"unlock"`
		Request *models.ServiceRequest `json:"request"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 8, got.Unlock.CostPaid)
	assert.Equal(t, "Fix leak", got.Request.Title, "unlock response should reveal the request")
}

func TestUnlockLeadHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrInsufficientCredits, http.StatusPaymentRequired},
		{services.ErrAlreadyUnlocked, http.StatusConflict},
		{services.ErrNotFound, http.StatusNotFound},
	}
	for _, c := range cases {
		h := &LeadHandler{Leads: &stubLeadReader{}, Unlock: &stubUnlocker{err: c.err}}
		rec := httptest.NewRecorder()
		h.UnlockLead(rec, authed(http.MethodPost, "/v1/leads/x/unlock", "", uuid.New(), models.RoleProfessional, uuid.NewString()))
		assert.Equal(t, c.want, rec.Code, "error %v", c.err)
	}
}

func TestGetLeadHandler_GatesRequestBehindUnlock(t *testing.T) {
	lead := &models.Lead{ID: uuid.New(), RequestID: uuid.New(), Category: "plumbing", Cost: 8}
	sr := &models.ServiceRequest{ID: lead.RequestID, Description: "secret details"}

	// Locked: teaser only.
	h := &LeadHandler{
		Leads:    &stubLeadReader{lead: lead},
		Unlocks:  &stubUnlockChecker{unlocked: false},
		Requests: &stubRequestReader{request: sr},
	}
	rec := httptest.NewRecorder()
	h.GetLead(rec, authed(http.MethodGet, "/v1/leads/x", "", uuid.New(), models.RoleProfessional, lead.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)

	var locked leadDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&locked))
	assert.False(t, locked.Unlocked)
	assert.Nil(t, locked.Request, "locked lead must not reveal the request")

	// Unlocked: full request included.
	h.Unlocks = &stubUnlockChecker{unlocked: true}
	rec = httptest.NewRecorder()
	h.GetLead(rec, authed(http.MethodGet, "/v1/leads/x", "", uuid.New(), models.RoleProfessional, lead.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)

	var open leadDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&open))
	assert.True(t, open.Unlocked)
	require.NotNil(t, open.Request)
	assert.Equal(t, "secret details", open.Request.Description)
}

func TestListAvailableHandler_FiltersByRegion(t *testing.T) {
	professional := uuid.New()
	near := &models.Lead{ID: uuid.New(), Category: "plumbing", Region: "Corroios, Seixal, Setúbal"}
	far := &models.Lead{ID: uuid.New(), Category: "plumbing", Region: "Porto"}

	h := &LeadHandler{
		Leads: &stubLeadReader{feed: []*models.Lead{near, far}},
		Profiles: &stubProfileReader{profile: &models.ProfessionalProfile{
			AccountID:  professional,
			Categories: []string{"plumbing"},
			Regions:    []string{"Seixal"},
		}},
	}
	rec := httptest.NewRecorder()
	h.ListAvailable(rec, authed(http.MethodGet, "/v1/leads", "", professional, models.RoleProfessional, ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var feed []*models.Lead
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&feed))
	require.Len(t, feed, 1)
	assert.Equal(t, near.ID, feed[0].ID)
}

func TestListAvailableHandler_NoProfile(t *testing.T) {
	h := &LeadHandler{Leads: &stubLeadReader{}, Profiles: &stubProfileReader{}}
	rec := httptest.NewRecorder()
	h.ListAvailable(rec, authed(http.MethodGet, "/v1/leads", "", uuid.New(), models.RoleProfessional, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

// ---------------------------------------------------------------------------
// ProposalHandler
// ---------------------------------------------------------------------------

func TestSubmitProposalHandler(t *testing.T) {
	pro := uuid.New()
	h := &ProposalHandler{
		Proposals: &stubProposals{proposal: &models.Proposal{ID: uuid.New(), Status: models.ProposalStatusPending}},
		Validator: mustValidator(t),
	}

	body := `{"price": 120, "description": "Can start Monday."}`
	rec := httptest.NewRecorder()
	h.Submit(rec, authed(http.MethodPost, "/v1/requests/x/proposals", body, pro, models.RoleProfessional, uuid.NewString()))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSubmitProposalHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrNotUnlocked, http.StatusForbidden},
		{services.ErrDuplicateProposal, http.StatusConflict},
		{services.ErrRequestNotAccepting, http.StatusConflict},
	}
	body := `{"price": 120, "description": "Can start Monday."}`
	for _, c := range cases {
		h := &ProposalHandler{Proposals: &stubProposals{err: c.err}, Validator: mustValidator(t)}
		rec := httptest.NewRecorder()
		h.Submit(rec, authed(http.MethodPost, "/v1/requests/x/proposals", body, uuid.New(), models.RoleProfessional, uuid.NewString()))
		assert.Equal(t, c.want, rec.Code, "error %v", c.err)
	}
}

func TestAcceptProposalHandler_AlreadyDecided(t *testing.T) {
	h := &ProposalHandler{Proposals: &stubProposals{err: services.ErrAlreadyDecided}}
	rec := httptest.NewRecorder()
	h.Accept(rec, authed(http.MethodPost, "/v1/proposals/x/accept", "", uuid.New(), models.RoleClient, uuid.NewString()))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ---------------------------------------------------------------------------
// ProfileHandler
// ---------------------------------------------------------------------------

func TestProfileHandler_PutNormalizes(t *testing.T) {
	store := &stubProfileReader{}
	h := &ProfileHandler{Profiles: store}

	body := `{"categories": ["Plumbing", " plumbing ", "Catering"], "regions": [" Seixal "], "notify_url": "https://pro.example/hook"}`
	rec := httptest.NewRecorder()
	h.Put(rec, authed(http.MethodPut, "/v1/profile", body, uuid.New(), models.RoleProfessional, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"plumbing", "catering"}, store.profile.Categories)
	assert.Equal(t, []string{"Seixal"}, store.profile.Regions)
}

func TestProfileHandler_RejectsBadNotifyURL(t *testing.T) {
	h := &ProfileHandler{Profiles: &stubProfileReader{}}
	body := `{"categories": ["plumbing"], "notify_url": "ftp://nope"}`
	rec := httptest.NewRecorder()
	h.Put(rec, authed(http.MethodPut, "/v1/profile", body, uuid.New(), models.RoleProfessional, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
