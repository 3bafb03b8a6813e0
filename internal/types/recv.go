package types

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"
)

type RecvStatusKind string

const (
	RecvInserted           RecvStatusKind = "INSERTED"
	RecvInsertError        RecvStatusKind = "INSERT_ERROR"
	RecvPartTradedQueueing RecvStatusKind = "PART_TRADED_QUEUEING"
	RecvAllTraded          RecvStatusKind = "ALL_TRADED"
	RecvCanceled           RecvStatusKind = "CANCELED"
	RecvNotTouched         RecvStatusKind = "NOT_TOUCHED"
	RecvUnknown            RecvStatusKind = "UNKNOWN"
)

// RecvStatus is a broker order status. Code is set for InsertError and
// Unknown, Filled for PartTradedQueueing and Canceled.
type RecvStatus struct {
	Kind   RecvStatusKind `json:"kind"`
	Code   int            `json:"code,omitempty"`
	Filled float64        `json:"filled,omitempty"`
}

func (s RecvStatus) String() string {
	switch s.Kind {
	case RecvInsertError, RecvUnknown:
		return fmt.Sprintf("%s(%d)", s.Kind, s.Code)
	case RecvPartTradedQueueing, RecvCanceled:
		return fmt.Sprintf("%s(%g)", s.Kind, s.Filled)
	default:
		return string(s.Kind)
	}
}

// Terminal reports whether no further updates are expected for the order.
func (s RecvStatus) Terminal() bool {
	switch s.Kind {
	case RecvAllTraded, RecvCanceled, RecvInsertError:
		return true
	default:
		return false
	}
}

// OrderRecv is an inbound order-state record.
type OrderRecv struct {
	ID         string                  `json:"id"`
	Status     RecvStatus              `json:"status"`
	UpdateTime time.Time               `json:"update_time"`
	OrderRef   optional.Option[string] `json:"order_ref"`
	FrontID    optional.Option[int]    `json:"front_id"`
	SessionID  optional.Option[int]    `json:"session_id"`
	ExchangeID optional.Option[string] `json:"exchange_id"`
}

// Ref returns the order reference, falling back to the record id.
func (o OrderRecv) Ref() string {
	return o.OrderRef.TakeOr(o.ID)
}

// DataRecv is one inbound event of the live bridge.
type DataRecv interface {
	isDataRecv()
}

// TickRecv carries a tick for the contract at Index.
type TickRecv struct {
	Index int
	Tick  TickData
}

// OrderRecvEvent carries one order-state update.
type OrderRecvEvent struct {
	Index int
	Recv  OrderRecv
}

// OrderRecvHis carries the broker's order history for a contract, replayed at
// startup to rebuild the hold.
type OrderRecvHis struct {
	Index   int
	Records []OrderRecvWithAction
}

// OrderRecvWithAction pairs a historical record with the action it answered.
type OrderRecvWithAction struct {
	Action OrderAction
	Recv   OrderRecv
}

func (TickRecv) isDataRecv()       {}
func (OrderRecvEvent) isDataRecv() {}
func (OrderRecvHis) isDataRecv()   {}
