package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/storefront-session/auth"
	"github.com/jrsteele09/storefront-session/identity"
	"github.com/jrsteele09/storefront-session/identity/oidcadmin"
	"github.com/jrsteele09/storefront-session/identity/restclient"
	"github.com/jrsteele09/storefront-session/internal/config"
	"github.com/jrsteele09/storefront-session/internal/metrics"
	"github.com/jrsteele09/storefront-session/sessionstore"
	"github.com/jrsteele09/storefront-session/sessionstore/filestore"
	"github.com/jrsteele09/storefront-session/sessionstore/memstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type globalFlags struct {
	ephemeral  bool
	path       string
	dataFolder string
}

// app is one initialized controller with the collaborators it was built from.
type app struct {
	cfg        config.Config
	store      sessionstore.Store
	controller *auth.Controller
	registry   *prometheus.Registry
}

func newApp(ctx context.Context, cfg config.Config, flags *globalFlags) (*app, error) {
	store, err := newStore(flags)
	if err != nil {
		return nil, err
	}

	service, err := newIdentityService(ctx, cfg, store)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	controller, err := auth.NewController(
		auth.Dependencies{Store: store, Identity: service},
		auth.WithRouter(auth.StaticPath(flags.path)),
		auth.WithPathMarkers(auth.PathMarkers{
			Admin:    cfg.GetAdminPathMarkers(),
			Customer: cfg.GetCustomerPathMarkers(),
		}),
		auth.WithNearExpiryThreshold(cfg.GetNearExpiryThreshold()),
		auth.WithMetrics(metrics.New(registry)),
		auth.WithLogger(log.Logger.With().Str("component", "auth_controller").Logger()),
	)
	if err != nil {
		return nil, err
	}

	controller.Initialize(ctx)
	if err := controller.InitError(); err != nil {
		log.Warn().Err(err).Msg("stored sessions could not be restored, starting signed out")
	}

	return &app{cfg: cfg, store: store, controller: controller, registry: registry}, nil
}

func newStore(flags *globalFlags) (sessionstore.Store, error) {
	if flags.ephemeral {
		return memstore.New(), nil
	}
	store, err := filestore.New(flags.dataFolder)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", store.Path()).Msg("using file session store")
	return store, nil
}

// newIdentityService talks to the storefront API, federating the admin role to
// the OIDC provider when one is configured.
func newIdentityService(ctx context.Context, cfg config.Config, store sessionstore.Store) (identity.Service, error) {
	rest, err := restclient.New(cfg.GetStorefrontAPIURL(), store,
		restclient.WithTimeout(cfg.GetIdentityTimeout()),
		restclient.WithLogger(log.Logger.With().Str("component", "identity_client").Logger()),
	)
	if err != nil {
		return nil, err
	}
	if cfg.GetOIDCIssuerURL() == "" {
		return rest, nil
	}

	federated, err := oidcadmin.New(ctx, oidcadmin.Config{
		IssuerURL:    cfg.GetOIDCIssuerURL(),
		ClientID:     cfg.GetOIDCClientID(),
		ClientSecret: cfg.GetOIDCClientSecret(),
	}, rest, store, oidcadmin.WithLogger(log.Logger.With().Str("component", "oidc_admin").Logger()))
	if err != nil {
		return nil, fmt.Errorf("admin identity provider: %w", err)
	}
	return federated, nil
}

// close waits for background refreshes started by the controller.
func (a *app) close() {
	a.controller.Wait()
}
