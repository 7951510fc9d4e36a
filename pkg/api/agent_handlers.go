package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/otpgate/pkg/httputil"
	"github.com/platinummonkey/otpgate/pkg/identity"
	"github.com/platinummonkey/otpgate/pkg/observability"
)

// upsertAgent handles POST /api/sms/agent/upsert
func (s *Server) upsertAgent(w http.ResponseWriter, r *http.Request) {
	var req UpsertAgentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	creds, err := s.identity.EnsureAgentIdentity(r.Context(), string(req.Phone), req.Name)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidPhone) {
			httputil.WriteBadRequest(w, "invalid phone")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("agent upsert failed")
		httputil.WriteInternalError(w, "failed to provision agent")
		return
	}

	httputil.WriteSuccess(w, creds)
}

// updateEmail handles POST /api/auth/update-email
func (s *Server) updateEmail(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmailRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	req.NewEmail = strings.TrimSpace(req.NewEmail)
	if !httputil.ValidateAll(w,
		func() (bool, string) { return req.UserID != "", "userId is required" },
		func() (bool, string) { return req.NewEmail != "", "newEmail is required" },
		func() (bool, string) { return identity.ValidEmail(req.NewEmail), "invalid email" },
	) {
		return
	}

	email, err := s.identity.UpdateEmail(r.Context(), req.UserID, req.NewEmail)
	switch {
	case err == nil:
		httputil.WriteSuccess(w, UpdateEmailResponse{OK: true, Email: email})
	case errors.Is(err, identity.ErrInvalidEmail):
		httputil.WriteBadRequest(w, "invalid email")
	case errors.Is(err, identity.ErrMissingUserID):
		httputil.WriteBadRequest(w, "userId is required")
	case errors.Is(err, identity.ErrIdentityUpdate):
		httputil.WriteConflict(w, "failed to update identity email")
	default:
		observability.FromContext(r.Context()).WithError(err).Error("profile email sync failed")
		httputil.WriteInternalError(w, "failed to sync profile email")
	}
}
