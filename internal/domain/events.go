package domain

// TicketMessage is the kitchen-ticket print request published for every new
// order item and consumed by the print spooler.
type TicketMessage struct {
	JobID       int64  `json:"job_id"`
	OrderItemID int64  `json:"order_item_id"`
	OrderID     int64  `json:"order_id"`
	RecipeName  string `json:"recipe_name"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes,omitempty"`
	IsTakeaway  bool   `json:"is_takeaway"`
	Zone        string `json:"zone"`
	Table       string `json:"table"`
	WaiterName  string `json:"waiter_name"`
	Attempt     int    `json:"attempt"`
}
