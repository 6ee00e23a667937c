package rpc

import (
	"encoding/json"
	"net/http"
)

type registerCourseParams struct {
	Caller       string `json:"caller"`
	CreditWeight uint64 `json:"creditWeight"`
}

type catalogCourseParams struct {
	Caller   string `json:"caller,omitempty"`
	CourseID uint64 `json:"courseId"`
	URI      string `json:"uri,omitempty"`
}

type catalogCourseResult struct {
	CourseID     uint64 `json:"courseId"`
	Owner        string `json:"owner"`
	CreditWeight uint64 `json:"creditWeight"`
	URI          string `json:"uri,omitempty"`
}

func (s *Server) handleRegisterCourse(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params registerCourseParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if params.CreditWeight == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "creditWeight must be positive", nil)
		return
	}
	id, err := s.uni.RegisterCourse(caller, params.CreditWeight)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, catalogCourseResult{CourseID: id, Owner: params.Caller, CreditWeight: params.CreditWeight})
}

func (s *Server) handleBurnCourse(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params catalogCourseParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.uni.BurnCourse(caller, params.CourseID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleSetCourseURI(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params catalogCourseParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.uni.SetCourseURI(caller, params.CourseID, params.URI); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetCatalogCourse(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params catalogCourseParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	course, err := s.uni.CatalogCourse(params.CourseID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, catalogCourseResult{
		CourseID:     course.ID,
		Owner:        formatAddress(course.Owner),
		CreditWeight: course.CreditWeight,
		URI:          course.URI,
	})
}
