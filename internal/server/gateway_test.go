package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/rs/zerolog"
)

func newTestGateway(t *testing.T, initialSupply uint64) http.Handler {
	t.Helper()
	svc := newTestService(t, initialSupply)
	g := NewGateway("", svc, nil, zerolog.Nop())

	mux := runtime.NewServeMux()
	if err := g.registerRoutes(mux); err != nil {
		t.Fatalf("registerRoutes: %v", err)
	}
	return mux
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGateway_Status(t *testing.T) {
	h := newTestGateway(t, 1_000)

	rec := doJSON(t, h, "GET", "/v1/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}

	var resp GetStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalSupply != 1_000 {
		t.Errorf("total supply: got %d, want 1_000", resp.TotalSupply)
	}
	if resp.Admin != adminAddr.String() {
		t.Errorf("admin: got %s, want %s", resp.Admin, adminAddr)
	}
}

func TestGateway_BalancePathParam(t *testing.T) {
	h := newTestGateway(t, 1_000)

	rec := doJSON(t, h, "GET", "/v1/balances/"+adminAddr.String(), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}

	var resp GetBalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Balance != 1_000 {
		t.Errorf("balance: got %d, want 1_000", resp.Balance)
	}
}

func TestGateway_TransferWithCallerHeader(t *testing.T) {
	h := newTestGateway(t, 1_000)

	body := `{"receiver":"` + userAddr.String() + `","amount":100}`
	rec := doJSON(t, h, "POST", "/v1/transfer", body, map[string]string{
		callerHeader: adminAddr.String(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, "GET", "/v1/balances/"+userAddr.String(), "", nil)
	var resp GetBalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Balance != 100 {
		t.Errorf("balance: got %d, want 100", resp.Balance)
	}
}

func TestGateway_BodyCallerWinsOverHeader(t *testing.T) {
	h := newTestGateway(t, 1_000)

	// Body names a broke account; the header caller has funds. The body
	// must win, so the transfer fails.
	body := `{"caller":"` + userAddr.String() + `","receiver":"` + otherAddr.String() + `","amount":100}`
	rec := doJSON(t, h, "POST", "/v1/transfer", body, map[string]string{
		callerHeader: adminAddr.String(),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d (body %s)", rec.Code, http.StatusBadRequest, rec.Body)
	}
}

func TestGateway_ErrorStatusMapping(t *testing.T) {
	h := newTestGateway(t, 1_000)

	// Non-admin mint: PermissionDenied maps to 403.
	body := `{"caller":"` + userAddr.String() + `","target":"` + userAddr.String() + `","amount":10}`
	rec := doJSON(t, h, "POST", "/v1/admin/mint", body, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin mint: got %d, want %d (body %s)", rec.Code, http.StatusForbidden, rec.Body)
	}

	// Malformed address: InvalidArgument maps to 400.
	rec = doJSON(t, h, "GET", "/v1/balances/not-hex", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed address: got %d, want %d (body %s)", rec.Code, http.StatusBadRequest, rec.Body)
	}

	// Malformed JSON body.
	rec = doJSON(t, h, "POST", "/v1/transfer", "{not json", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGateway_AdminFlow(t *testing.T) {
	h := newTestGateway(t, 1_000)

	// Pause, verify a transfer is rejected, unpause.
	pause := `{"caller":"` + adminAddr.String() + `","paused":true}`
	rec := doJSON(t, h, "POST", "/v1/admin/pause", pause, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: got %d, body %s", rec.Code, rec.Body)
	}

	transfer := `{"caller":"` + adminAddr.String() + `","receiver":"` + userAddr.String() + `","amount":10}`
	rec = doJSON(t, h, "POST", "/v1/transfer", transfer, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("transfer while paused: got %d, want %d", rec.Code, http.StatusBadRequest)
	}

	unpause := `{"caller":"` + adminAddr.String() + `","paused":false}`
	rec = doJSON(t, h, "POST", "/v1/admin/pause", unpause, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unpause: got %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, "POST", "/v1/transfer", transfer, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("transfer after unpause: got %d, body %s", rec.Code, rec.Body)
	}
}

func TestGateway_BlacklistEndpoint(t *testing.T) {
	h := newTestGateway(t, 1_000)

	body := `{"caller":"` + adminAddr.String() + `","account":"` + userAddr.String() + `","blacklisted":true}`
	rec := doJSON(t, h, "POST", "/v1/admin/blacklist", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("blacklist: got %d, body %s", rec.Code, rec.Body)
	}

	var resp SetBlacklistedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Blacklisted || resp.Account != userAddr.String() {
		t.Errorf("unexpected response: %+v", resp)
	}
}
