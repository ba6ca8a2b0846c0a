package api

import (
	"net/http"

	"github.com/meganoshop/megano-server/internal/http/response"
	"github.com/meganoshop/megano-server/internal/service"
)

// handleSignUp creates an account and signs it in. An anonymous basket
// carried by the cookie is merged into the new user's basket.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	req.AnonymousBasketToken = s.basketToken(r)
	req.IPAddress = clientIP(r)

	resp, err := s.authService.SignUp(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	// The anonymous basket is gone after the merge.
	if req.AnonymousBasketToken != "" {
		s.clearBasketCookie(w)
	}
	response.Created(w, resp, s.logger)
}

// handleSignIn authenticates a user and issues tokens. The basket merge runs
// as part of the sign-in.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req service.SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	req.AnonymousBasketToken = s.basketToken(r)
	req.IPAddress = clientIP(r)

	resp, err := s.authService.SignIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if req.AnonymousBasketToken != "" {
		s.clearBasketCookie(w)
	}
	response.Success(w, resp, s.logger)
}

// signOutRequest carries the refresh token whose session should die.
type signOutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleSignOut revokes the session behind a refresh token. Revoking an
// unknown token still succeeds.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	var req signOutRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	if err := s.authService.SignOut(r.Context(), req.RefreshToken); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]string{"message": "signed out"}, s.logger)
}

// handleRefresh exchanges a refresh token for a new token pair.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req service.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	resp, err := s.authService.Refresh(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}
