package entity

// OrderStatus is the lifecycle state of an order. Values outside the known
// set are rejected at the boundary; the transition tables below are the
// single source of truth for what moves are legal.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ItemStatus is the preparation state of a single order line.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusPreparing ItemStatus = "preparing"
	ItemStatusReady     ItemStatus = "ready"
	ItemStatusServed    ItemStatus = "served"
	ItemStatusCancelled ItemStatus = "cancelled"
)

// Channel describes how an order was placed.
type Channel string

const (
	ChannelDineIn   Channel = "dine_in"
	ChannelTakeaway Channel = "takeaway"
	ChannelDelivery Channel = "delivery"
)

// TableStatus is the occupancy state of a restaurant table. It is derived
// from order activity and written only by the order service.
type TableStatus string

const (
	TableStatusAvailable TableStatus = "available"
	TableStatusOccupied  TableStatus = "occupied"
	TableStatusReserved  TableStatus = "reserved"
	TableStatusCleaning  TableStatus = "cleaning"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusServed, OrderStatusCancelled},
	OrderStatusServed:    {OrderStatusPaid},
	OrderStatusPaid:      {},
	OrderStatusCancelled: {},
}

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusPending:   {ItemStatusPreparing, ItemStatusCancelled},
	ItemStatusPreparing: {ItemStatusReady, ItemStatusCancelled},
	ItemStatusReady:     {ItemStatusServed},
	ItemStatusServed:    {},
	ItemStatusCancelled: {},
}

// CanTransitionTo reports whether the order may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether the item may move to next.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s ItemStatus) Terminal() bool {
	return len(itemTransitions[s]) == 0
}

// ParseOrderStatus validates a raw status value.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(raw)
	_, ok := orderTransitions[s]
	return s, ok
}

// ParseItemStatus validates a raw item status value.
func ParseItemStatus(raw string) (ItemStatus, bool) {
	s := ItemStatus(raw)
	_, ok := itemTransitions[s]
	return s, ok
}

// ParseChannel validates a raw channel value.
func ParseChannel(raw string) (Channel, bool) {
	switch c := Channel(raw); c {
	case ChannelDineIn, ChannelTakeaway, ChannelDelivery:
		return c, true
	default:
		return "", false
	}
}
