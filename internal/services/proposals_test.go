package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/oficio-app/backend/internal/models"
)

type proposalFixture struct {
	svc       *ProposalService
	requests  *mockRequestRepo
	proposals *mockProposalRepo
	unlocks   *mockUnlockRepo
	leads     *mockLeadRepo

	client    uuid.UUID
	requestID uuid.UUID
	leadID    uuid.UUID
}

// newProposalFixture seeds one pending request with one lead.
func newProposalFixture() *proposalFixture {
	f := &proposalFixture{
		client:    uuid.New(),
		requestID: uuid.New(),
		leadID:    uuid.New(),
		proposals: newMockProposalRepo(),
		leads:     newMockLeadRepo(),
	}
	f.requests = newMockRequestRepo(&models.ServiceRequest{
		ID: f.requestID, ClientID: f.client, Status: models.RequestStatusPending,
		Categories: []string{"plumbing"},
	})
	f.leads.CreateTx(context.Background(), noopTx{}, &models.Lead{
		ID: f.leadID, RequestID: f.requestID, Category: "plumbing", Cost: 8,
	})
	f.unlocks = newMockUnlockRepo(f.leads)
	f.svc = NewProposalService(&serialPool{}, f.proposals, f.requests, f.unlocks, nil)
	return f
}

// unlockFor records a paid unlock so the professional may submit.
func (f *proposalFixture) unlockFor(professionalID uuid.UUID) {
	f.unlocks.CreateTx(context.Background(), noopTx{}, &models.UnlockRecord{
		LeadID: f.leadID, ProfessionalID: professionalID, CostPaid: 8,
	})
}

func (f *proposalFixture) submit(t *testing.T, professionalID uuid.UUID) *models.Proposal {
	t.Helper()
	p, err := f.svc.Submit(context.Background(), professionalID, f.requestID, ProposalInput{
		Price: 120, Description: "Can start Monday.",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return p
}

func TestSubmit(t *testing.T) {
	f := newProposalFixture()
	professional := uuid.New()
	f.unlockFor(professional)

	p := f.submit(t, professional)
	if p.Status != models.ProposalStatusPending {
		t.Errorf("status: got %q, want pending", p.Status)
	}
	if p.RequestID != f.requestID || p.ProfessionalID != professional {
		t.Error("proposal should reference the request and the submitter")
	}
}

func TestSubmit_RequiresUnlock(t *testing.T) {
	f := newProposalFixture()

	_, err := f.svc.Submit(context.Background(), uuid.New(), f.requestID, ProposalInput{
		Price: 120, Description: "Can start Monday.",
	})
	if !errors.Is(err, ErrNotUnlocked) {
		t.Fatalf("got %v, want ErrNotUnlocked", err)
	}
}

func TestSubmit_DuplicateLiveProposal(t *testing.T) {
	f := newProposalFixture()
	professional := uuid.New()
	f.unlockFor(professional)
	f.submit(t, professional)

	_, err := f.svc.Submit(context.Background(), professional, f.requestID, ProposalInput{
		Price: 100, Description: "Second thoughts.",
	})
	if !errors.Is(err, ErrDuplicateProposal) {
		t.Fatalf("got %v, want ErrDuplicateProposal", err)
	}
}

func TestSubmit_AllowedAfterRejection(t *testing.T) {
	f := newProposalFixture()
	professional := uuid.New()
	f.unlockFor(professional)
	first := f.submit(t, professional)

	ctx := context.Background()
	if _, err := f.svc.Reject(ctx, f.client, first.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	second, err := f.svc.Submit(ctx, professional, f.requestID, ProposalInput{
		Price: 110, Description: "Revised offer.",
	})
	if err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
	if second.ID == first.ID {
		t.Error("resubmission should be a new proposal")
	}
}

func TestSubmit_RequestNotAccepting(t *testing.T) {
	f := newProposalFixture()
	professional := uuid.New()
	f.unlockFor(professional)

	ctx := context.Background()
	for _, status := range []string{
		models.RequestStatusActive,
		models.RequestStatusCompleted,
		models.RequestStatusCancelled,
	} {
		f.requests.UpdateStatusTx(ctx, noopTx{}, f.requestID, status)
		_, err := f.svc.Submit(ctx, professional, f.requestID, ProposalInput{
			Price: 120, Description: "x",
		})
		if !errors.Is(err, ErrRequestNotAccepting) {
			t.Errorf("status %s: got %v, want ErrRequestNotAccepting", status, err)
		}
	}
}

func TestSubmit_Validation(t *testing.T) {
	f := newProposalFixture()
	professional := uuid.New()
	f.unlockFor(professional)
	ctx := context.Background()

	bad := []ProposalInput{
		{Price: 0, Description: "x"},
		{Price: -5, Description: "x"},
		{Price: 100, Description: "  "},
		{Price: 100, Description: "x", EstimatedDays: intPtr(0)},
	}
	for i, in := range bad {
		if _, err := f.svc.Submit(ctx, professional, f.requestID, in); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: got %v, want ErrValidation", i, err)
		}
	}
}

func TestAccept_CascadesAndActivates(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()

	pros := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	var submitted []*models.Proposal
	for _, pro := range pros {
		f.unlockFor(pro)
		submitted = append(submitted, f.submit(t, pro))
	}

	winner := submitted[1]
	accepted, err := f.svc.Accept(ctx, f.client, winner.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != models.ProposalStatusAccepted {
		t.Errorf("winner status: got %q, want accepted", accepted.Status)
	}

	for i, p := range submitted {
		if p.ID == winner.ID {
			continue
		}
		if got := f.proposals.statusOf(p.ID); got != models.ProposalStatusRejected {
			t.Errorf("sibling %d: got %q, want rejected", i, got)
		}
	}
	if got := f.requests.status(f.requestID); got != models.RequestStatusActive {
		t.Errorf("request status: got %q, want active", got)
	}
}

func TestAccept_SecondAcceptFails(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()

	proA, proB := uuid.New(), uuid.New()
	f.unlockFor(proA)
	f.unlockFor(proB)
	first := f.submit(t, proA)
	second := f.submit(t, proB)

	if _, err := f.svc.Accept(ctx, f.client, first.ID); err != nil {
		t.Fatalf("first Accept: %v", err)
	}
	if _, err := f.svc.Accept(ctx, f.client, second.ID); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("second Accept: got %v, want ErrAlreadyDecided", err)
	}
	if got := f.proposals.statusOf(second.ID); got != models.ProposalStatusRejected {
		t.Errorf("loser status: got %q, want rejected", got)
	}
}

// Concurrent accepts of different proposals on one request: exactly one
// wins, every other proposal ends rejected, the request ends active.
func TestAccept_Concurrent(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()

	const n = 8
	ids := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		pro := uuid.New()
		f.unlockFor(pro)
		ids[i] = f.submit(t, pro).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Accept(ctx, f.client, ids[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyDecided):
		default:
			t.Errorf("accept %d: unexpected error %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners: got %d, want exactly 1", wins)
	}

	acceptedCount := 0
	for _, id := range ids {
		if f.proposals.statusOf(id) == models.ProposalStatusAccepted {
			acceptedCount++
		}
	}
	if acceptedCount != 1 {
		t.Errorf("accepted proposals: got %d, want 1", acceptedCount)
	}
	if got := f.requests.status(f.requestID); got != models.RequestStatusActive {
		t.Errorf("request status: got %q, want active", got)
	}
}

func TestAccept_OnlyOwner(t *testing.T) {
	f := newProposalFixture()
	pro := uuid.New()
	f.unlockFor(pro)
	p := f.submit(t, pro)

	if _, err := f.svc.Accept(context.Background(), uuid.New(), p.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
	if got := f.proposals.statusOf(p.ID); got != models.ProposalStatusPending {
		t.Errorf("proposal status: got %q, want pending", got)
	}
}

func TestReject_TerminalIsFinal(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	pro := uuid.New()
	f.unlockFor(pro)
	p := f.submit(t, pro)

	if _, err := f.svc.Reject(ctx, f.client, p.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := f.svc.Reject(ctx, f.client, p.ID); !errors.Is(err, ErrAlreadyDecided) {
		t.Errorf("second Reject: got %v, want ErrAlreadyDecided", err)
	}
	if _, err := f.svc.Accept(ctx, f.client, p.ID); !errors.Is(err, ErrAlreadyDecided) {
		t.Errorf("Accept after Reject: got %v, want ErrAlreadyDecided", err)
	}
}

func TestComplete(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	pro := uuid.New()
	f.unlockFor(pro)
	p := f.submit(t, pro)

	// Not yet active.
	if _, err := f.svc.Complete(ctx, f.client, f.requestID); !errors.Is(err, ErrRequestNotAccepting) {
		t.Fatalf("Complete before accept: got %v, want ErrRequestNotAccepting", err)
	}

	if _, err := f.svc.Accept(ctx, f.client, p.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if _, err := f.svc.Complete(ctx, uuid.New(), f.requestID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Complete by stranger: got %v, want ErrForbidden", err)
	}

	sr, err := f.svc.Complete(ctx, f.client, f.requestID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if sr.Status != models.RequestStatusCompleted {
		t.Errorf("status: got %q, want completed", sr.Status)
	}

	// Completed is terminal.
	if _, err := f.svc.Complete(ctx, f.client, f.requestID); !errors.Is(err, ErrRequestNotAccepting) {
		t.Errorf("second Complete: got %v, want ErrRequestNotAccepting", err)
	}
}

func TestCancel(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()

	if _, err := f.svc.Cancel(ctx, uuid.New(), f.requestID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Cancel by stranger: got %v, want ErrForbidden", err)
	}

	sr, err := f.svc.Cancel(ctx, f.client, f.requestID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if sr.Status != models.RequestStatusCancelled {
		t.Errorf("status: got %q, want cancelled", sr.Status)
	}

	// Cancelled is terminal: no second cancel, no submissions.
	if _, err := f.svc.Cancel(ctx, f.client, f.requestID); !errors.Is(err, ErrRequestNotAccepting) {
		t.Errorf("second Cancel: got %v, want ErrRequestNotAccepting", err)
	}
}

func TestCancel_ActiveNotCancellable(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	pro := uuid.New()
	f.unlockFor(pro)
	p := f.submit(t, pro)
	if _, err := f.svc.Accept(ctx, f.client, p.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, f.client, f.requestID); !errors.Is(err, ErrRequestNotAccepting) {
		t.Errorf("Cancel active: got %v, want ErrRequestNotAccepting", err)
	}
}

func TestListForRequest_OwnerOnly(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	pro := uuid.New()
	f.unlockFor(pro)
	f.submit(t, pro)

	if _, err := f.svc.ListForRequest(ctx, uuid.New(), f.requestID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
	list, err := f.svc.ListForRequest(ctx, f.client, f.requestID)
	if err != nil {
		t.Fatalf("ListForRequest: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("proposals: got %d, want 1", len(list))
	}
}

func intPtr(v int) *int { return &v }
