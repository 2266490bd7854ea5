package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/status"

	"TokenLedger/internal/observability"
)

// callerHeader carries the caller identity when the JSON body omits it.
const callerHeader = "X-Ledger-Caller"

// Gateway serves the HTTP/JSON surface on a grpc-gateway ServeMux. Routes
// are registered with HandlePath (the gateway's manual registration path)
// and call the same LedgerService the gRPC server uses.
type Gateway struct {
	addr       string
	svc        LedgerServer
	health     *observability.HealthChecker
	log        zerolog.Logger
	httpServer *http.Server
}

func NewGateway(addr string, svc LedgerServer, health *observability.HealthChecker, log zerolog.Logger) *Gateway {
	return &Gateway{
		addr:   addr,
		svc:    svc,
		health: health,
		log:    log,
	}
}

// Start serves until ctx is cancelled (blocking).
func (g *Gateway) Start(ctx context.Context) error {
	mux := runtime.NewServeMux()
	if err := g.registerRoutes(mux); err != nil {
		return fmt.Errorf("register gateway routes: %w", err)
	}

	httpMux := http.NewServeMux()
	if g.health != nil {
		httpMux.HandleFunc("/healthz", g.health.LivenessHandler)
		httpMux.HandleFunc("/readyz", g.health.ReadinessHandler)
	}
	httpMux.Handle("/", mux)

	g.httpServer = &http.Server{
		Addr:    g.addr,
		Handler: httpMux,
	}

	go func() {
		<-ctx.Done()
		g.log.Info().Msg("HTTP gateway shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		g.httpServer.Shutdown(shutdownCtx)
	}()

	g.log.Info().Str("addr", g.addr).Msg("HTTP gateway listening")
	if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (g *Gateway) registerRoutes(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{"GET", "/v1/status", g.getStatus},
		{"GET", "/v1/balances/{account}", g.getBalance},
		{"GET", "/v1/allowances/{owner}/{spender}", g.getAllowance},
		{"POST", "/v1/transfer", g.transfer},
		{"POST", "/v1/approve", g.approve},
		{"POST", "/v1/allowances/increase", g.increaseAllowance},
		{"POST", "/v1/allowances/decrease", g.decreaseAllowance},
		{"POST", "/v1/transfer-from", g.transferFrom},
		{"POST", "/v1/admin/mint", g.mint},
		{"POST", "/v1/admin/burn", g.burn},
		{"POST", "/v1/admin/pause", g.setPaused},
		{"POST", "/v1/admin/blacklist", g.setBlacklisted},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.handler); err != nil {
			return fmt.Errorf("route %s %s: %w", r.method, r.pattern, err)
		}
	}
	return nil
}

func (g *Gateway) getStatus(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	resp, err := g.svc.GetStatus(r.Context(), &GetStatusRequest{})
	g.respond(w, resp, err)
}

func (g *Gateway) getBalance(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	resp, err := g.svc.GetBalance(r.Context(), &GetBalanceRequest{Account: pathParams["account"]})
	g.respond(w, resp, err)
}

func (g *Gateway) getAllowance(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	resp, err := g.svc.GetAllowance(r.Context(), &GetAllowanceRequest{
		Owner:   pathParams["owner"],
		Spender: pathParams["spender"],
	})
	g.respond(w, resp, err)
}

func (g *Gateway) transfer(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req TransferRequest
	if !g.decode(w, r, &req) {
		return
	}
	req.Caller = callerOf(r, req.Caller)
	resp, err := g.svc.Transfer(r.Context(), &req)
	g.respond(w, resp, err)
}

func (g *Gateway) approve(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req ApproveRequest
	if !g.decode(w, r, &req) {
		return
	}
	req.Caller = callerOf(r, req.Caller)
	resp, err := g.svc.Approve(r.Context(), &req)
	g.respond(w, resp, err)
}

func (g *Gateway) increaseAllowance(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req AdjustAllowanceRequest
	if !g.decode(w, r, &req) {
		return
	}
	req.Caller = callerOf(r, req.Caller)
	resp, err := g.svc.IncreaseAllowance(r.Context(), &req)
	g.respond(w, resp, err)
}

func (g *Gateway) decreaseAllowance(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req AdjustAllowanceRequest
	if !g.decode(w, r, &req) {
		return
	}
	req.Caller = callerOf(r, req.Caller)
	resp, err := g.svc.DecreaseAllowance(r.Context(), &req)
	g.respond(w, resp, err)
}

func (g *Gateway) transferFrom(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req TransferFromRequest
	if !g.decode(w, r, &req) {
		return
	}
	req.Caller = callerOf(r, req.Caller)
	resp, err := g.svc.TransferFrom(r.Context(), &req)
	g.respond(w, resp, err)
}

func (g *Gateway) mint(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req MintRequest
	if !g.decode(w, r, &req) {
		return
	}
	req.Caller = callerOf(r, req.Caller)
	resp, err := g.svc.Mint(r.Context(), &req)
	g.respond(w, resp, err)
}

func (g *Gateway) burn(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req BurnRequest
	if !g.decode(w, r, &req) {
		return
	}
	req.Caller = callerOf(r, req.Caller)
	resp, err := g.svc.Burn(r.Context(), &req)
	g.respond(w, resp, err)
}

func (g *Gateway) setPaused(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req SetPausedRequest
	if !g.decode(w, r, &req) {
		return
	}
	req.Caller = callerOf(r, req.Caller)
	resp, err := g.svc.SetPaused(r.Context(), &req)
	g.respond(w, resp, err)
}

func (g *Gateway) setBlacklisted(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req SetBlacklistedRequest
	if !g.decode(w, r, &req) {
		return
	}
	req.Caller = callerOf(r, req.Caller)
	resp, err := g.svc.SetBlacklisted(r.Context(), &req)
	g.respond(w, resp, err)
}

func (g *Gateway) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		g.writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return false
	}
	return true
}

func (g *Gateway) respond(w http.ResponseWriter, resp interface{}, err error) {
	if err != nil {
		st := status.Convert(err)
		g.writeError(w, runtime.HTTPStatusFromCode(st.Code()), st.Message())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (g *Gateway) writeError(w http.ResponseWriter, httpStatus int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func callerOf(r *http.Request, bodyCaller string) string {
	if bodyCaller != "" {
		return bodyCaller
	}
	return r.Header.Get(callerHeader)
}
