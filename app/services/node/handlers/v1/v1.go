// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/omoto202/mycoin3/app/services/node/handlers/v1/public"
	"github.com/omoto202/mycoin3/foundation/blockchain/state"
	"github.com/omoto202/mycoin3/foundation/nameservice"
	"github.com/omoto202/mycoin3/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/chain", pbl.Chain)
	app.Handle(http.MethodPost, version, "/chain/sync", pbl.SyncChain)
	app.Handle(http.MethodGet, version, "/balance/:identity", pbl.Balance)
	app.Handle(http.MethodGet, version, "/accounts", pbl.Accounts)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodPost, version, "/tx/reset", pbl.ResetMempool)
	app.Handle(http.MethodPost, version, "/mine", pbl.Mine)
}
