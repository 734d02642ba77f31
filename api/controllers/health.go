package controllers

import (
	"net/http"

	"github.com/camilavaldes/splitabill-backend/api/responses"
	"github.com/camilavaldes/splitabill-backend/pkg/config"
	"github.com/camilavaldes/splitabill-backend/pkg/db"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
	"github.com/camilavaldes/splitabill-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Splitabill-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the hard dependencies. Redis is optional: a nil client
// means the hub runs with the in-process fabric and readiness ignores it.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Splitabill-Env", cfg.App.Env)

		checks := map[string]string{"db": "ok"}
		if err := dbP.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
			return
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
			checks["redis"] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
