package types

import "fmt"

// OrderKind is the trade direction and offset of an action. Lo actions buy
// and Sh actions sell: LoOpen opens a long, ShClose sells to close it, ShOpen
// opens a short and LoClose buys it back.
type OrderKind string

const (
	OrderNo          OrderKind = "NO"
	OrderLoOpen      OrderKind = "LO_OPEN"
	OrderLoClose     OrderKind = "LO_CLOSE"
	OrderShOpen      OrderKind = "SH_OPEN"
	OrderShClose     OrderKind = "SH_CLOSE"
	OrderCancelOrder OrderKind = "CANCEL_ORDER"
)

// OrderAction is the outbound instruction sent to a broker.
type OrderAction struct {
	Kind  OrderKind `json:"kind" csv:"kind"`
	Size  float64   `json:"size" csv:"size"`
	Price float64   `json:"price" csv:"price"`
	// Ref identifies the order to cancel for CancelOrder actions.
	Ref string `json:"ref,omitempty" csv:"ref"`
}

func NoAction() OrderAction { return OrderAction{Kind: OrderNo} }

func LoOpen(n, p float64) OrderAction  { return OrderAction{Kind: OrderLoOpen, Size: n, Price: p} }
func LoClose(n, p float64) OrderAction { return OrderAction{Kind: OrderLoClose, Size: n, Price: p} }
func ShOpen(n, p float64) OrderAction  { return OrderAction{Kind: OrderShOpen, Size: n, Price: p} }
func ShClose(n, p float64) OrderAction { return OrderAction{Kind: OrderShClose, Size: n, Price: p} }

func CancelOrder(ref string) OrderAction {
	return OrderAction{Kind: OrderCancelOrder, Ref: ref}
}

// IsNo reports whether the action does nothing.
func (a OrderAction) IsNo() bool {
	return a.Kind == OrderNo || a.Kind == ""
}

// IsBuy reports whether the action buys contracts.
func (a OrderAction) IsBuy() bool {
	return a.Kind == OrderLoOpen || a.Kind == OrderLoClose
}

// IsOpen reports whether the action opens a position.
func (a OrderAction) IsOpen() bool {
	return a.Kind == OrderLoOpen || a.Kind == OrderShOpen
}

// SignedSize is the change in net position the action causes when filled.
func (a OrderAction) SignedSize() float64 {
	if a.IsBuy() {
		return a.Size
	}

	switch a.Kind {
	case OrderShOpen, OrderShClose:
		return -a.Size
	default:
		return 0
	}
}

// WithPrice returns a copy priced at p.
func (a OrderAction) WithPrice(p float64) OrderAction {
	a.Price = p

	return a
}

func (a OrderAction) String() string {
	switch a.Kind {
	case OrderNo, "":
		return "No"
	case OrderCancelOrder:
		return fmt.Sprintf("CancelOrder(%s)", a.Ref)
	default:
		return fmt.Sprintf("%s(%g, %g)", a.Kind, a.Size, a.Price)
	}
}
