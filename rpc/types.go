package rpc

import (
	"math/big"

	"campuschain/native/enrollment"
)

func zeroAmount() *big.Int { return big.NewInt(0) }

func formatSeat(seat *enrollment.Seat) seatResult {
	return seatResult{
		SeatID:       seat.ID,
		TermID:       seat.TermID,
		CourseID:     seat.CourseID,
		SlotIndex:    seat.SlotIndex,
		StudentToken: seat.StudentToken,
		Owner:        formatAddress(seat.Owner),
		Marked:       seat.Marked,
		Mark:         seat.Mark,
	}
}
