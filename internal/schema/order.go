package schema

// Side describes order direction.
type Side uint16

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the other trading direction.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideUnknown
	}
}

// OrderType describes order type.
type OrderType uint16

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	default:
		return "unknown"
	}
}

// OrderStatus tracks the lifecycle of a pending order.
type OrderStatus uint16

const (
	OrderStatusUnknown OrderStatus = iota
	OrderStatusSubmitted
	OrderStatusFilled
	OrderStatusCancelled
	OrderStatusLiquidated
	OrderStatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusSubmitted:
		return "submitted"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusLiquidated:
		return "liquidated"
	case OrderStatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusLiquidated, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// OrderIntent is what a strategy asks the execution engine to do.
// LimitPrice is required iff Type is OrderTypeLimit. TTLNano of zero
// means the order never expires.
type OrderIntent struct {
	Side       Side
	Qty        Quantity
	Type       OrderType
	LimitPrice Price
	TTLNano    int64
}

// Position is the single open position of an account. Zero Qty means
// flat; Margin and LiquidationPrice are zero in spot mode.
type Position struct {
	Side             Side
	Qty              Quantity
	EntryPrice       Price
	Leverage         int
	Margin           Money
	LiquidationPrice Price
	OpenNano         int64
}

// Flat reports whether no position is open.
func (p Position) Flat() bool {
	return p.Side == SideUnknown || p.Qty == 0
}

// Account is a read-only snapshot of the simulated balance sheet.
type Account struct {
	Cash          Money
	BaseQty       Quantity
	Position      Position
	PendingOrders int
}

// Trade is an immutable closed-position record appended to the ledger.
type Trade struct {
	Side       Side
	Qty        Quantity
	EntryPrice Price
	ExitPrice  Price
	Pnl        Money
	Fees       Money
	OpenNano   int64
	CloseNano  int64
	Liquidated bool
}
