package rpc

import (
	"encoding/json"
	"net/http"
)

type listSeatParams struct {
	Caller    string `json:"caller"`
	CourseID  uint64 `json:"courseId"`
	SlotIndex uint64 `json:"slotIndex"`
	Price     string `json:"price"`
}

type listingSlotParams struct {
	Caller    string `json:"caller,omitempty"`
	TermID    uint64 `json:"termId,omitempty"`
	CourseID  uint64 `json:"courseId"`
	SlotIndex uint64 `json:"slotIndex"`
}

type listingResult struct {
	TermID    uint64 `json:"termId"`
	CourseID  uint64 `json:"courseId"`
	SlotIndex uint64 `json:"slotIndex"`
	SeatID    uint64 `json:"seatId"`
	Seller    string `json:"seller"`
	Price     string `json:"price"`
}

func (s *Server) handleListSeat(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params listSeatParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	price, err := parsePositiveBigInt(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid price", err.Error())
		return
	}
	listing, err := s.uni.ListSeat(caller, params.CourseID, params.SlotIndex, price)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, listingResult{
		TermID:    listing.TermID,
		CourseID:  listing.CourseID,
		SlotIndex: listing.SlotIndex,
		SeatID:    listing.SeatID,
		Seller:    formatAddress(listing.Seller),
		Price:     listing.Price.String(),
	})
}

func (s *Server) handleCancelListing(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params listingSlotParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.uni.CancelSeatListing(caller, params.CourseID, params.SlotIndex); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleBuySeat(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params listingSlotParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	seat, err := s.uni.BuySeat(caller, params.CourseID, params.SlotIndex)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatSeat(seat))
}

func (s *Server) handleGetListing(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params listingSlotParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	termID := params.TermID
	if termID == 0 {
		current, err := s.uni.CurrentTermID()
		if err != nil {
			writeEngineError(w, req.ID, err)
			return
		}
		termID = current
	}
	listing, ok, err := s.uni.SeatListing(termID, params.CourseID, params.SlotIndex)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "no listing for this slot", nil)
		return
	}
	writeResult(w, req.ID, listingResult{
		TermID:    listing.TermID,
		CourseID:  listing.CourseID,
		SlotIndex: listing.SlotIndex,
		SeatID:    listing.SeatID,
		Seller:    formatAddress(listing.Seller),
		Price:     listing.Price.String(),
	})
}
