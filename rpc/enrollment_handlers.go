package rpc

import (
	"encoding/json"
	"net/http"
)

type addCourseParams struct {
	Caller    string `json:"caller"`
	CourseID  uint64 `json:"courseId"`
	SeatLimit uint64 `json:"seatLimit"`
	Price     string `json:"price,omitempty"`
}

type applyParams struct {
	Caller       string `json:"caller"`
	CourseID     uint64 `json:"courseId"`
	SlotIndex    uint64 `json:"slotIndex"`
	StudentToken uint64 `json:"studentToken"`
}

type claimParams struct {
	Caller    string `json:"caller"`
	CourseID  uint64 `json:"courseId"`
	SlotIndex uint64 `json:"slotIndex"`
}

type markParams struct {
	Caller string `json:"caller"`
	SeatID uint64 `json:"seatId"`
	Grade  uint64 `json:"grade"`
}

type seatTransferParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	SeatID uint64 `json:"seatId"`
}

type courseQueryParams struct {
	TermID   uint64 `json:"termId"`
	CourseID uint64 `json:"courseId"`
}

type seatQueryParams struct {
	TermID uint64 `json:"termId"`
	SeatID uint64 `json:"seatId"`
}

type seatResult struct {
	SeatID       uint64 `json:"seatId"`
	TermID       uint64 `json:"termId"`
	CourseID     uint64 `json:"courseId"`
	SlotIndex    uint64 `json:"slotIndex"`
	StudentToken uint64 `json:"studentToken"`
	Owner        string `json:"owner"`
	Marked       bool   `json:"marked"`
	Mark         uint64 `json:"mark,omitempty"`
}

type courseResult struct {
	CourseID     uint64   `json:"courseId"`
	TeacherToken uint64   `json:"teacherToken"`
	SeatLimit    uint64   `json:"seatLimit"`
	Price        string   `json:"price,omitempty"`
	Waitlist     []uint64 `json:"waitlist"`
	Claimed      []bool   `json:"claimed"`
}

func (s *Server) handleAddCourse(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params addCourseParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	price := zeroAmount()
	if params.Price != "" {
		price, err = parsePositiveBigInt(params.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid price", err.Error())
			return
		}
	}
	if err := s.uni.AddCourse(caller, params.CourseID, params.SeatLimit, price); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleApply(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params applyParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.uni.Apply(caller, params.CourseID, params.SlotIndex, params.StudentToken); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleClaim(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params claimParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	seat, err := s.uni.Claim(caller, params.CourseID, params.SlotIndex)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatSeat(seat))
}

func (s *Server) handleMarkStudent(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params markParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.uni.MarkStudent(caller, params.SeatID, params.Grade); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleTransferSeat(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params seatTransferParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	to, err := parseBech32Address(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid to address", err.Error())
		return
	}
	if err := s.uni.TransferSeat(caller, to, params.SeatID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params courseQueryParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	course, err := s.uni.Course(params.TermID, params.CourseID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	result := courseResult{
		CourseID:     course.ID,
		TeacherToken: course.TeacherToken,
		SeatLimit:    course.SeatLimit,
		Waitlist:     course.Waitlist,
		Claimed:      course.Claimed,
	}
	if course.Price != nil && course.Price.Sign() > 0 {
		result.Price = course.Price.String()
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetSeat(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params seatQueryParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	seat, err := s.uni.Seat(params.TermID, params.SeatID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatSeat(seat))
}
