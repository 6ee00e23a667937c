package events

import (
	"strconv"

	"campuschain/core/types"
	"campuschain/crypto"
)

const (
	TypeMarketListed    = "market.listed"
	TypeMarketCancelled = "market.cancelled"
	TypeMarketSold      = "market.sold"
)

// MarketListed is emitted when a seat token moves into marketplace escrow.
type MarketListed struct {
	TermID    uint64
	CourseID  uint64
	SlotIndex uint64
	Seller    [20]byte
	Price     string
}

// EventType implements the Event interface.
func (MarketListed) EventType() string { return TypeMarketListed }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e MarketListed) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketListed,
		Attributes: map[string]string{
			"termId":    strconv.FormatUint(e.TermID, 10),
			"courseId":  strconv.FormatUint(e.CourseID, 10),
			"slotIndex": strconv.FormatUint(e.SlotIndex, 10),
			"seller":    crypto.NewAddress(crypto.CampusPrefix, e.Seller[:]).String(),
			"price":     e.Price,
		},
	}
}

// MarketCancelled is emitted when a lister withdraws a listing and regains custody.
type MarketCancelled struct {
	TermID    uint64
	CourseID  uint64
	SlotIndex uint64
	Seller    [20]byte
}

// EventType implements the Event interface.
func (MarketCancelled) EventType() string { return TypeMarketCancelled }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e MarketCancelled) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketCancelled,
		Attributes: map[string]string{
			"termId":    strconv.FormatUint(e.TermID, 10),
			"courseId":  strconv.FormatUint(e.CourseID, 10),
			"slotIndex": strconv.FormatUint(e.SlotIndex, 10),
			"seller":    crypto.NewAddress(crypto.CampusPrefix, e.Seller[:]).String(),
		},
	}
}

// MarketSold is emitted when a listed seat settles against a buyer's payment.
type MarketSold struct {
	TermID    uint64
	CourseID  uint64
	SlotIndex uint64
	Seller    [20]byte
	Buyer     [20]byte
	Price     string
}

// EventType implements the Event interface.
func (MarketSold) EventType() string { return TypeMarketSold }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e MarketSold) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketSold,
		Attributes: map[string]string{
			"termId":    strconv.FormatUint(e.TermID, 10),
			"courseId":  strconv.FormatUint(e.CourseID, 10),
			"slotIndex": strconv.FormatUint(e.SlotIndex, 10),
			"seller":    crypto.NewAddress(crypto.CampusPrefix, e.Seller[:]).String(),
			"buyer":     crypto.NewAddress(crypto.CampusPrefix, e.Buyer[:]).String(),
			"price":     e.Price,
		},
	}
}
