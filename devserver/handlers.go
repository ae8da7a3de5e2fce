package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/storefront-session/identity"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyClaims stores the verified access token claims
const ContextKeyClaims ContextKey = "claims"

const (
	msgInvalidCredentials  = "Invalid email or password"
	msgAccountBlocked      = "Account is blocked"
	msgInvalidRefreshToken = "Invalid refresh token"
	msgExpiredRefreshToken = "Refresh token expired"
	msgUnauthorized        = "Unauthorized"
	msgBadRequest          = "Malformed request"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failure{Success: false, Message: message})
}

// issuePair creates a fresh access token and rotates the account's refresh token.
func (s *Server) issuePair(account *Account) (*token.Pair, error) {
	access, _, err := s.access.Create(account)
	if err != nil {
		return nil, err
	}
	refresh, err := s.refresh.Create(account.ID, account.Role)
	if err != nil {
		return nil, err
	}
	return &token.Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Server) loginHandler(role profile.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req identity.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, http.StatusBadRequest, msgBadRequest)
			return
		}

		account, err := s.accounts.GetByEmail(role, req.Email)
		if err != nil || !CheckPasswordHash(req.Password, account.PasswordHash) {
			s.logger.Info().Str("role", role.String()).Str("email", req.Email).Msg("login rejected")
			writeFailure(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		if account.Blocked {
			writeFailure(w, http.StatusForbidden, msgAccountBlocked)
			return
		}

		pair, err := s.issuePair(account)
		if err != nil {
			s.logger.Err(err).Str("account_id", account.ID).Msg("issuing tokens failed")
			writeFailure(w, http.StatusInternalServerError, "Could not issue tokens")
			return
		}
		_ = s.accounts.SetLastLogin(account.ID, s.now())

		user, err := json.Marshal(account.LoginUser())
		if err != nil {
			writeFailure(w, http.StatusInternalServerError, "Could not encode user")
			return
		}
		writeJSON(w, http.StatusOK, identity.LoginResponse{
			Success: true,
			Message: "Login successful",
			User:    user,
			Tokens:  pair,
		})
	}
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	var req identity.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeFailure(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	stored, err := s.refresh.Get(req.RefreshToken)
	if err != nil || stored.Role != req.Role {
		writeFailure(w, http.StatusUnauthorized, msgInvalidRefreshToken)
		return
	}
	if s.refresh.IsExpired(stored) {
		_ = s.refresh.Delete(stored.Token)
		writeFailure(w, http.StatusUnauthorized, msgExpiredRefreshToken)
		return
	}

	account, err := s.accounts.GetByID(stored.AccountID)
	if err != nil || account.Blocked {
		_ = s.refresh.Delete(stored.Token)
		writeFailure(w, http.StatusUnauthorized, msgInvalidRefreshToken)
		return
	}

	pair, err := s.issuePair(account)
	if err != nil {
		s.logger.Err(err).Str("account_id", account.ID).Msg("rotating tokens failed")
		writeFailure(w, http.StatusInternalServerError, "Could not issue tokens")
		return
	}
	writeJSON(w, http.StatusOK, identity.RefreshResponse{Success: true, Message: "Token refreshed", Tokens: pair})
}

// logoutHandler revokes the presented access token and the account's refresh token.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.bearerClaims(r)
	if !ok {
		writeFailure(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req identity.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.RefreshToken != "" {
		if stored, err := s.refresh.Get(req.RefreshToken); err == nil && stored.AccountID == claims.Subject {
			_ = s.refresh.Delete(stored.Token)
		}
	}

	revoked := s.revoked.Revoke(claims)
	s.logger.Info().Str("role", claims.Role.String()).Str("account_id", claims.Subject).Int("revoked_tokens", revoked).Msg("logged out")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminProfileHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := s.accountFromContext(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, identity.AdminProfileResponse{Success: true, Admin: account.Admin})
}

func (s *Server) customerProfileHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := s.accountFromContext(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, identity.CustomerProfileResponse{Success: true, Customer: account.Customer})
}

func (s *Server) accountFromContext(w http.ResponseWriter, r *http.Request) (*Account, bool) {
	claims, _ := r.Context().Value(ContextKeyClaims).(*AccessClaims)
	if claims == nil {
		writeFailure(w, http.StatusUnauthorized, msgUnauthorized)
		return nil, false
	}
	account, err := s.accounts.GetByID(claims.Subject)
	if err != nil {
		writeFailure(w, http.StatusUnauthorized, msgUnauthorized)
		return nil, false
	}
	return account, true
}

// bearerClaims verifies the request's bearer token and checks it was not revoked.
func (s *Server) bearerClaims(r *http.Request) (*AccessClaims, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return nil, false
	}

	claims, err := s.access.Verify(parts[1])
	if err != nil {
		s.logger.Debug().Err(err).Msg("bearer rejected")
		return nil, false
	}
	if s.revoked.IsRevoked(claims) {
		return nil, false
	}
	return claims, true
}

// requireRole admits requests whose bearer token belongs to role. A valid token
// of the other role is forbidden rather than unauthorized.
func (s *Server) requireRole(role profile.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := s.bearerClaims(r)
			if !ok {
				writeFailure(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			if claims.Role != role {
				writeFailure(w, http.StatusForbidden, "Forbidden")
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
