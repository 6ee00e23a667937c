package rpc

import (
	"encoding/json"
	"math/big"
	"net/http"
)

type fundsParams struct {
	Caller string `json:"caller"`
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type balanceParams struct {
	Address string `json:"address"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func (s *Server) handleMintFunds(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	params, caller, to, amount, ok := s.decodeFunds(w, req)
	if !ok {
		return
	}
	_ = params
	if err := s.uni.MintFunds(caller, to, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleTransferFunds(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	_, caller, to, amount, ok := s.decodeFunds(w, req)
	if !ok {
		return
	}
	if err := s.uni.TransferFunds(caller, to, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleApproveFunds(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	_, caller, spender, amount, ok := s.decodeFunds(w, req)
	if !ok {
		return
	}
	if err := s.uni.ApproveFunds(caller, spender, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleTransferFundsFrom(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	params, caller, to, amount, ok := s.decodeFunds(w, req)
	if !ok {
		return
	}
	from, err := parseBech32Address(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid from address", err.Error())
		return
	}
	if err := s.uni.TransferFundsFrom(caller, from, to, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) decodeFunds(w http.ResponseWriter, req *RPCRequest) (fundsParams, [20]byte, [20]byte, *big.Int, bool) {
	var params fundsParams
	var zero [20]byte
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return params, zero, zero, nil, false
	}
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return params, zero, zero, nil, false
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return params, zero, zero, nil, false
	}
	to, err := parseBech32Address(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid to address", err.Error())
		return params, zero, zero, nil, false
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid amount", err.Error())
		return params, zero, zero, nil, false
	}
	return params, caller, to, amount, true
}

func (s *Server) handleGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params balanceParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	addr, err := parseBech32Address(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	balance, err := s.uni.BalanceOf(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{Address: params.Address, Balance: balance.String()})
}
