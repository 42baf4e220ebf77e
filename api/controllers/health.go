package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/quizfunnel-backend/api/responses"
	"github.com/angelmondragon/quizfunnel-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
)

const (
	envHeader    = "X-QuizFunnel-Env"
	readyTimeout = 2 * time.Second
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is a named backing service checked by the readiness probe.
type Dependency struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency; any failure reports 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed *pkgerrors.Error
		for _, dep := range deps {
			if dep.Pinger == nil {
				checks[dep.Name] = "disabled"
				continue
			}
			if err := dep.Pinger.Ping(ctx); err != nil {
				checks[dep.Name] = "down"
				if failed == nil {
					failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.Name+" unavailable")
				}
				continue
			}
			checks[dep.Name] = "up"
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, failed.WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
