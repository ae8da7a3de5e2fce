package auth

import (
	"context"

	"github.com/jrsteele09/storefront-session/identity"
	"github.com/jrsteele09/storefront-session/internal/metrics"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Reconciliation is the outcome of checking the persisted tokens of both roles.
type Reconciliation struct {
	AdminValid    bool
	CustomerValid bool
}

// Valid reports the outcome for role.
func (r Reconciliation) Valid(role profile.Role) bool {
	if role == profile.RoleAdmin {
		return r.AdminValid
	}
	return r.CustomerValid
}

// Validator applies the expiry policy to persisted sessions and drives refreshes.
// It never returns errors: every failure resolves to "invalid" or false.
type Validator struct {
	store    sessionstore.Store
	identity identity.Service
	codec    *token.Codec
	metrics  *metrics.Recorder
	logger   zerolog.Logger
}

type ValidatorOption func(*Validator)

func WithValidatorLogger(logger zerolog.Logger) ValidatorOption {
	return func(v *Validator) {
		v.logger = logger
	}
}

func WithValidatorMetrics(recorder *metrics.Recorder) ValidatorOption {
	return func(v *Validator) {
		v.metrics = recorder
	}
}

func NewValidator(store sessionstore.Store, service identity.Service, codec *token.Codec, options ...ValidatorOption) *Validator {
	v := &Validator{
		store:    store,
		identity: service,
		codec:    codec,
		logger:   log.Logger.With().Str("component", "session_validator").Logger(),
	}
	for _, opt := range options {
		opt(v)
	}
	if v.codec == nil {
		v.codec = token.NewCodec()
	}
	return v
}

// ReconcileStoredTokens checks the persisted token of each role. An expired token
// has its role's persisted state cleared; a valid one is left untouched.
func (v *Validator) ReconcileStoredTokens() Reconciliation {
	return Reconciliation{
		AdminValid:    v.reconcile(profile.RoleAdmin),
		CustomerValid: v.reconcile(profile.RoleCustomer),
	}
}

func (v *Validator) reconcile(role profile.Role) bool {
	pair, err := v.store.Tokens(role)
	if err != nil {
		v.logger.Warn().Err(err).Str("role", role.String()).Msg("reading stored tokens failed, treating session as invalid")
		return false
	}
	if pair == nil || pair.AccessToken == "" {
		return false
	}
	if !v.codec.IsExpired(pair.AccessToken) {
		return true
	}

	if err := v.store.Clear(role); err != nil {
		v.logger.Warn().Err(err).Str("role", role.String()).Msg("clearing expired session failed")
	}
	v.metrics.SessionCleared(role.String(), metrics.ReasonExpired)
	v.logger.Info().Str("role", role.String()).Msg("stored token expired, session cleared")
	return false
}

// AttemptRefresh asks the identity service to renew role's tokens. On success the
// service has persisted the new pair. Failure is reported, never raised.
func (v *Validator) AttemptRefresh(ctx context.Context, role profile.Role) bool {
	result, err := v.identity.Refresh(ctx, role)
	ok := err == nil && result != nil && result.Success

	v.metrics.Refresh(role.String(), ok)
	switch {
	case err != nil:
		v.logger.Warn().Err(err).Str("role", role.String()).Msg("token refresh failed")
	case !ok:
		msg := ""
		if result != nil {
			msg = result.Message
		}
		v.logger.Warn().Str("role", role.String()).Str("message", msg).Msg("token refresh rejected")
	default:
		v.logger.Debug().Str("role", role.String()).Msg("token refreshed")
	}
	return ok
}
