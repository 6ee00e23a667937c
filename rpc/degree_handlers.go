package rpc

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
)

type mintDegreeParams struct {
	Caller       string `json:"caller"`
	StudentToken uint64 `json:"studentToken"`
}

type attachHashParams struct {
	Caller       string `json:"caller"`
	StudentToken uint64 `json:"studentToken"`
	Hash         string `json:"hash"`
}

type degreeQueryParams struct {
	StudentToken uint64 `json:"studentToken"`
}

type degreeResult struct {
	StudentToken uint64 `json:"studentToken"`
	Owner        string `json:"owner"`
	Credit       uint64 `json:"credit"`
	Hash         string `json:"hash,omitempty"`
}

type creditResult struct {
	StudentToken uint64 `json:"studentToken"`
	WeightSum    uint64 `json:"weightSum"`
	GradeSum     uint64 `json:"gradeSum"`
	Credit       uint64 `json:"credit"`
}

func (s *Server) handleMintDegree(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params mintDegreeParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	record, err := s.uni.MintDegree(caller, params.StudentToken)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, degreeResult{
		StudentToken: record.StudentToken,
		Owner:        formatAddress(record.Owner),
		Credit:       record.Credit,
	})
}

func (s *Server) handleAttachDegreeHash(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params attachHashParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(params.Hash), "0x"))
	if err != nil || len(raw) != 32 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "hash must be 32 hex-encoded bytes", nil)
		return
	}
	var hash [32]byte
	copy(hash[:], raw)
	if err := s.uni.AttachDegreeHash(caller, params.StudentToken, hash); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetDegree(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params degreeQueryParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	record, ok, err := s.uni.Degree(params.StudentToken)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "no degree for this student", nil)
		return
	}
	result := degreeResult{
		StudentToken: record.StudentToken,
		Owner:        formatAddress(record.Owner),
		Credit:       record.Credit,
	}
	if record.HashSet {
		result.Hash = hex.EncodeToString(record.Hash[:])
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetCredit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params degreeQueryParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	weightSum, gradeSum, credit, err := s.uni.ComputeCredit(params.StudentToken)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, creditResult{
		StudentToken: params.StudentToken,
		WeightSum:    weightSum,
		GradeSum:     gradeSum,
		Credit:       credit,
	})
}
