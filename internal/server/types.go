package server

// Wire types for the ledger service. The gRPC side carries them through a
// JSON codec; the HTTP gateway reuses them directly.

type GetBalanceRequest struct {
	Account string `json:"account"`
}

type GetBalanceResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

type GetAllowanceRequest struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

type GetAllowanceResponse struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  uint64 `json:"amount"`
}

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Admin       string `json:"admin"`
	TotalSupply uint64 `json:"total_supply"`
	Paused      bool   `json:"paused"`
	Sequence    uint64 `json:"sequence"`
}

type TransferRequest struct {
	Caller   string `json:"caller"`
	Receiver string `json:"receiver"`
	Amount   uint64 `json:"amount"`
}

type TransferResponse struct{}

type ApproveRequest struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
	Amount  uint64 `json:"amount"`
}

type ApproveResponse struct{}

type AdjustAllowanceRequest struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
	Delta   uint64 `json:"delta"`
}

type AdjustAllowanceResponse struct{}

type TransferFromRequest struct {
	Caller   string `json:"caller"`
	Owner    string `json:"owner"`
	Receiver string `json:"receiver"`
	Amount   uint64 `json:"amount"`
}

type TransferFromResponse struct{}

type MintRequest struct {
	Caller string `json:"caller"`
	Target string `json:"target"`
	Amount uint64 `json:"amount"`
}

type MintResponse struct {
	TotalSupply uint64 `json:"total_supply"`
}

type BurnRequest struct {
	Caller string `json:"caller"`
	Source string `json:"source"`
	Amount uint64 `json:"amount"`
}

type BurnResponse struct {
	TotalSupply uint64 `json:"total_supply"`
}

type SetPausedRequest struct {
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

type SetPausedResponse struct {
	Paused bool `json:"paused"`
}

type SetBlacklistedRequest struct {
	Caller      string `json:"caller"`
	Account     string `json:"account"`
	Blacklisted bool   `json:"blacklisted"`
}

type SetBlacklistedResponse struct {
	Account     string `json:"account"`
	Blacklisted bool   `json:"blacklisted"`
}
