package rpc

import (
	"encoding/json"
	"net/http"
	"strings"

	"campuschain/native/registry"
)

type issueIdentityParams struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

type issueIdentityResult struct {
	TokenID uint64 `json:"tokenId"`
	Address string `json:"address"`
	Role    string `json:"role"`
}

type roleTokenParams struct {
	Address string `json:"address"`
	Role    string `json:"role"`
}

func (s *Server) handleCreateTeacher(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleIssue(w, r, req, registry.RoleTeacher)
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleIssue(w, r, req, registry.RoleStudent)
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request, req *RPCRequest, role registry.Role) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params issueIdentityParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	addr, err := parseBech32Address(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}

	var id uint64
	if role == registry.RoleTeacher {
		id, err = s.uni.CreateTeacher(caller, addr)
	} else {
		id, err = s.uni.CreateStudent(caller, addr)
	}
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, issueIdentityResult{TokenID: id, Address: params.Address, Role: string(role)})
}

func (s *Server) handleGetRoleToken(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params roleTokenParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	addr, err := parseBech32Address(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	role := registry.Role(strings.ToLower(strings.TrimSpace(params.Role)))
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "role must be teacher or student", nil)
		return
	}
	id, ok, err := s.uni.TokenOf(role, addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "no token for this address and role", nil)
		return
	}
	writeResult(w, req.ID, issueIdentityResult{TokenID: id, Address: params.Address, Role: string(role)})
}
