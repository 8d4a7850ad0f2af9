// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/websocket"
	"github.com/omoto202/mycoin3/business/web/errs"
	"github.com/omoto202/mycoin3/foundation/blockchain/state"
	"github.com/omoto202/mycoin3/foundation/nameservice"
	"github.com/omoto202/mycoin3/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
}

// Events handles a web socket to provide ledger snapshots to a client. The
// first frame is the latest snapshot, every change follows.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	sub := h.State.Subscribe()
	defer h.State.Unsubscribe(sub.ID)

	h.Log.Infow("events", "traceid", v.TraceID, "status", "subscribed", "subscription", sub.ID)

	// The read side only exists to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case snap, wd := <-sub.C:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(snap); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}

		case <-gone:
			h.Log.Infow("events", "traceid", v.TraceID, "status", "client gone", "subscription", sub.ID)
			return nil
		}
	}
}

// Chain returns a snapshot of the ledger.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveSnapshot(), http.StatusOK)
}

// Balance returns the balance available to the specified identity. Names
// known to the name service are accepted in place of the identity.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := h.NS.Resolve(web.Param(r, "identity"))

	resp := balanceResponse{
		Identity: id,
		Name:     h.NS.Lookup(id),
		Balance:  h.State.QueryBalance(id),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Accounts returns the sealed balance of every identity in the chain.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accounts := h.State.RetrieveAccounts()

	resp := make([]balanceResponse, 0, len(accounts))
	for id, bal := range accounts {
		resp = append(resp, balanceResponse{
			Identity: id,
			Name:     h.NS.Lookup(id),
			Balance:  bal,
		})
	}

	sort.Slice(resp, func(i, j int) bool {
		return resp[i].Identity < resp[j].Identity
	})

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitTransaction adds a new transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx newTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	tx := ntx.toTx()

	h.Log.Infow("submit tran", "traceid", v.TraceID, "tx", tx)

	receipt, err := h.State.SubmitTransaction(tx)
	if err != nil {
		return toTrusted(err)
	}

	resp := submitResponse{
		Accepted:     true,
		PendingCount: receipt.PendingCount,
		Balance:      receipt.Balance,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ResetMempool drops every pending transaction.
func (h Handlers) ResetMempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.ResetMempool()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mempool reset",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mine seals the pending transactions into a new block for the miner.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var mr mineRequest
	if err := web.Decode(r, &mr); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	block, err := h.State.MineNewBlock(ctx, h.NS.Resolve(mr.Miner))
	if err != nil {
		return toTrusted(err)
	}

	resp := mineResponse{
		Block:       block,
		ChainLength: h.State.QueryChainLength(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SyncChain offers a candidate chain to the node. A refused candidate is
// answered with the local chain so the caller can adopt it instead.
func (h Handlers) SyncChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var sr syncRequest
	if err := web.Decode(r, &sr); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	adopted, err := h.State.AdoptChain(sr.Chain)

	resp := syncResponse{
		Adopted: adopted,
		Chain:   h.State.RetrieveSnapshot().Chain,
	}
	if err != nil {
		resp.Reason = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// toTrusted maps ledger errors to the status code the client receives.
func toTrusted(err error) error {
	var ibe *state.InsufficientBalanceError
	if errors.As(err, &ibe) {
		return errs.NewTrustedBalance(err, http.StatusBadRequest, ibe.Balance)
	}

	switch {
	case errors.Is(err, state.ErrStaleTip):
		return errs.NewTrusted(err, http.StatusConflict)

	case errors.Is(err, state.ErrMiningFailed):
		if errors.Is(err, context.DeadlineExceeded) {
			return errs.NewTrusted(err, http.StatusGatewayTimeout)
		}
		return errs.NewTrusted(err, http.StatusInternalServerError)

	case errors.Is(err, state.ErrInvalidAmount),
		errors.Is(err, state.ErrReservedSender),
		errors.Is(err, state.ErrInvalidSignature),
		errors.Is(err, state.ErrIdentityMismatch),
		errors.Is(err, state.ErrMissingField),
		errors.Is(err, state.ErrInvalidCandidateChain):
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return fmt.Errorf("unexpected ledger error: %w", err)
}
