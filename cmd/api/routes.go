package main

import (
	"log/slog"
	"net/http"

	"github.com/oficio-app/backend/internal/auth"
	"github.com/oficio-app/backend/internal/handlers"
	"github.com/oficio-app/backend/internal/middleware"
	"github.com/oficio-app/backend/internal/models"
	"github.com/oficio-app/backend/internal/repository"
	"github.com/oficio-app/backend/internal/services"
)

type routeDeps struct {
	auth       auth.Service
	authH      *auth.Handler
	validator  *services.Validator
	derivation *services.DerivationService
	unlock     *services.UnlockService
	proposals  *services.ProposalService
	accounts   *repository.AccountRepo
	profiles   *repository.ProfileRepo
	requests   *repository.RequestRepo
	leads      *repository.LeadRepo
	unlocks    *repository.UnlockRepo
	credits    *repository.CreditRepo
	logger     *slog.Logger
}

// registerRoutes wires the /v1/ API. Chain: JWTAuth -> RequireRole -> handler.
// Clients own requests and decide proposals; professionals carry profiles,
// unlock leads and submit proposals.
func registerRoutes(mux *http.ServeMux, d routeDeps) {
	requestH := &handlers.RequestHandler{
		Derivation: d.derivation,
		Lifecycle:  d.proposals,
		Requests:   d.requests,
		Leads:      d.leads,
		Validator:  d.validator,
		Logger:     d.logger,
	}
	leadH := &handlers.LeadHandler{
		Leads:    d.leads,
		Unlock:   d.unlock,
		Unlocks:  d.unlocks,
		Profiles: d.profiles,
		Requests: d.requests,
		Logger:   d.logger,
	}
	proposalH := &handlers.ProposalHandler{
		Proposals: d.proposals,
		Validator: d.validator,
		Logger:    d.logger,
	}
	profileH := &handlers.ProfileHandler{Profiles: d.profiles, Logger: d.logger}
	creditH := &handlers.CreditHandler{
		Purchaser: d.unlock,
		Ledger:    d.credits,
		Accounts:  d.accounts,
		Logger:    d.logger,
	}

	authed := middleware.JWTAuth(d.auth)
	client := middleware.RequireRole(models.RoleClient)
	professional := middleware.RequireRole(models.RoleProfessional)

	// Public
	mux.HandleFunc("POST /v1/auth/register", d.authH.Register)
	mux.HandleFunc("POST /v1/auth/login", d.authH.Login)
	mux.HandleFunc("GET /v1/categories", handlers.ListCategories)

	// Client: request lifecycle
	mux.Handle("POST /v1/requests", authed(client(http.HandlerFunc(requestH.CreateRequest))))
	mux.Handle("GET /v1/requests", authed(client(http.HandlerFunc(requestH.ListRequests))))
	mux.Handle("GET /v1/requests/{id}", authed(client(http.HandlerFunc(requestH.GetRequest))))
	mux.Handle("PUT /v1/requests/{id}", authed(client(http.HandlerFunc(requestH.EditRequest))))
	mux.Handle("POST /v1/requests/{id}/complete", authed(client(http.HandlerFunc(requestH.CompleteRequest))))
	mux.Handle("POST /v1/requests/{id}/cancel", authed(client(http.HandlerFunc(requestH.CancelRequest))))
	mux.Handle("GET /v1/requests/{id}/proposals", authed(client(http.HandlerFunc(proposalH.ListForRequest))))

	// Client: proposal decisions
	mux.Handle("POST /v1/proposals/{id}/accept", authed(client(http.HandlerFunc(proposalH.Accept))))
	mux.Handle("POST /v1/proposals/{id}/reject", authed(client(http.HandlerFunc(proposalH.Reject))))

	// Professional: profile, leads, proposals, credits
	mux.Handle("PUT /v1/profile", authed(professional(http.HandlerFunc(profileH.Put))))
	mux.Handle("GET /v1/profile", authed(professional(http.HandlerFunc(profileH.Get))))
	mux.Handle("GET /v1/leads", authed(professional(http.HandlerFunc(leadH.ListAvailable))))
	mux.Handle("GET /v1/leads/unlocked", authed(professional(http.HandlerFunc(leadH.ListUnlocked))))
	mux.Handle("GET /v1/leads/{id}", authed(professional(http.HandlerFunc(leadH.GetLead))))
	mux.Handle("POST /v1/leads/{id}/unlock", authed(professional(http.HandlerFunc(leadH.UnlockLead))))
	mux.Handle("POST /v1/requests/{id}/proposals", authed(professional(http.HandlerFunc(proposalH.Submit))))
	mux.Handle("GET /v1/proposals", authed(professional(http.HandlerFunc(proposalH.ListMine))))
	mux.Handle("POST /v1/credits/purchase", authed(professional(http.HandlerFunc(creditH.Purchase))))
	mux.Handle("GET /v1/credits", authed(professional(http.HandlerFunc(creditH.History))))
}
