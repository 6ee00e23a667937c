package rpc

import (
	"errors"
	"net/http"

	"campuschain/core"
	"campuschain/native/bank"
	"campuschain/native/catalog"
	"campuschain/native/degree"
	"campuschain/native/enrollment"
	"campuschain/native/market"
	"campuschain/native/registry"
	"campuschain/native/term"
)

// writeEngineError maps a domain error onto an HTTP status and JSON-RPC code.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	status, code := classify(err)
	writeError(w, status, id, code, err.Error(), nil)
}

func classify(err error) (int, int) {
	switch {
	case errors.Is(err, core.ErrNotAdmin),
		errors.Is(err, core.ErrNotTokenOwner),
		errors.Is(err, catalog.ErrNotTeacher),
		errors.Is(err, catalog.ErrNotOwner),
		errors.Is(err, degree.ErrNotOwner),
		errors.Is(err, enrollment.ErrNotStudent),
		errors.Is(err, enrollment.ErrNotTeacher),
		errors.Is(err, enrollment.ErrOwnershipMismatch),
		errors.Is(err, enrollment.ErrNotOwner),
		errors.Is(err, market.ErrNotStudent),
		errors.Is(err, market.ErrNotOwner):
		return http.StatusForbidden, codeForbidden

	case errors.Is(err, enrollment.ErrUnknownTerm),
		errors.Is(err, enrollment.ErrUnknownCourse),
		errors.Is(err, enrollment.ErrUnknownSeat),
		errors.Is(err, catalog.ErrUnknownCourse),
		errors.Is(err, market.ErrUnknownListing),
		errors.Is(err, market.ErrUnknownSeat),
		errors.Is(err, registry.ErrUnknownToken),
		errors.Is(err, degree.ErrUnknownStudent),
		errors.Is(err, degree.ErrUnknownDegree):
		return http.StatusNotFound, codeNotFound

	case errors.Is(err, registry.ErrAlreadyIssued),
		errors.Is(err, degree.ErrAlreadyIssued),
		errors.Is(err, degree.ErrAlreadyAttached),
		errors.Is(err, enrollment.ErrDuplicateCourse),
		errors.Is(err, enrollment.ErrDuplicateApplicant),
		errors.Is(err, enrollment.ErrAlreadyClaimed),
		errors.Is(err, market.ErrAlreadyListed),
		errors.Is(err, market.ErrSelfPurchase),
		errors.Is(err, market.ErrDuplicateSeat):
		return http.StatusConflict, codeConflict

	case errors.Is(err, core.ErrNotOffSeason),
		errors.Is(err, catalog.ErrNotOffSeason),
		errors.Is(err, catalog.ErrNotModifiable),
		errors.Is(err, enrollment.ErrNotPlanningPhase),
		errors.Is(err, enrollment.ErrNotApplyingPhase),
		errors.Is(err, enrollment.ErrNotTradingPhase),
		errors.Is(err, enrollment.ErrNotActivePhase),
		errors.Is(err, enrollment.ErrTermClosed),
		errors.Is(err, term.ErrTermEnded):
		return http.StatusConflict, codePhase

	case errors.Is(err, bank.ErrInsufficientBalance),
		errors.Is(err, bank.ErrInsufficientAllowance),
		errors.Is(err, bank.ErrInvalidAmount):
		return http.StatusBadRequest, codeFunds

	case errors.Is(err, enrollment.ErrIndexTooHigh),
		errors.Is(err, enrollment.ErrInvalidSeatLimit),
		errors.Is(err, enrollment.ErrNoPlace),
		errors.Is(err, registry.ErrUnknownRole),
		errors.Is(err, degree.ErrInsufficientCredit):
		return http.StatusBadRequest, codeInvalidParams

	default:
		return http.StatusInternalServerError, codeServerError
	}
}
