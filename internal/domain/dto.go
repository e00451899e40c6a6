package domain

type CreateOrderItemRequest struct {
	RecipeID       int64   `json:"recipe_id"`
	Quantity       int     `json:"quantity"`
	Notes          string  `json:"notes,omitempty"`
	IsTakeaway     bool    `json:"is_takeaway"`
	ContainerID    *int64  `json:"container_id,omitempty"`
	ContainerPrice float64 `json:"container_price,omitempty"`
}

type CreateOrderRequest struct {
	TableID      int64                    `json:"table_id"`
	WaiterName   string                   `json:"waiter_name"`
	CustomerName string                   `json:"customer_name,omitempty"`
	PartySize    int                      `json:"party_size,omitempty"`
	Items        []CreateOrderItemRequest `json:"items"`
}

type UpdateItemStatusRequest struct {
	Status OrderItemStatus `json:"status"`
}

type CancelItemRequest struct {
	Reason string `json:"reason"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// UpdatedOrderItem is the status-change response: the fresh item plus a flag
// telling racing clients their transition had already been applied.
type UpdatedOrderItem struct {
	OrderItem
	Already bool `json:"already,omitempty"`
}
