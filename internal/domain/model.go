package domain

import "time"

type OrderItemStatus string

const (
	ItemCreated   OrderItemStatus = "CREATED"
	ItemPreparing OrderItemStatus = "PREPARING"
	ItemServed    OrderItemStatus = "SERVED"
	ItemCanceled  OrderItemStatus = "CANCELED"
)

func (s OrderItemStatus) String() string { return string(s) }

type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderPreparing OrderStatus = "PREPARING"
	OrderServed    OrderStatus = "SERVED"
	OrderPaid      OrderStatus = "PAID"
	OrderCanceled  OrderStatus = "CANCELED"
)

func (s OrderStatus) String() string { return string(s) }

type PrintJobStatus string

const (
	PrintPending    PrintJobStatus = "pending"
	PrintInProgress PrintJobStatus = "in_progress"
	PrintPrinted    PrintJobStatus = "printed"
	PrintFailed     PrintJobStatus = "failed"
	PrintCancelled  PrintJobStatus = "cancelled"
)

func (s PrintJobStatus) String() string { return string(s) }

type Recipe struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	PreparationTime int     `json:"preparation_time"` // minutes
	GroupID         *int64  `json:"group_id,omitempty"`
	GroupName       string  `json:"group_name,omitempty"`
}

type OrderItem struct {
	ID                 int64           `json:"id"`
	OrderID            int64           `json:"order_id"`
	RecipeID           int64           `json:"recipe_id"`
	RecipeName         string          `json:"recipe_name"`
	Quantity           int             `json:"quantity"`
	UnitPrice          float64         `json:"unit_price"`
	TotalPrice         float64         `json:"total_price"`
	ContainerPrice     float64         `json:"container_price,omitempty"`
	IsTakeaway         bool            `json:"is_takeaway"`
	Notes              string          `json:"notes,omitempty"`
	Status             OrderItemStatus `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	PreparingAt        *time.Time      `json:"preparing_at,omitempty"`
	CancellationReason *string         `json:"cancellation_reason,omitempty"`
}

type Order struct {
	ID           int64       `json:"id"`
	TableID      int64       `json:"table_id"`
	TableName    string      `json:"table_name,omitempty"`
	Zone         string      `json:"zone,omitempty"`
	WaiterName   string      `json:"waiter_name"`
	CustomerName string      `json:"customer_name,omitempty"`
	PartySize    int         `json:"party_size,omitempty"`
	Status       OrderStatus `json:"status"`
	Items        []OrderItem `json:"items"`
	Total        float64     `json:"total"`
	GrandTotal   float64     `json:"grand_total"`
	CreatedAt    time.Time   `json:"created_at"`
}

type Table struct {
	ID       int64  `json:"id"`
	Zone     string `json:"zone"`
	Name     string `json:"name"`
	Seats    int    `json:"seats"`
	Occupied bool   `json:"occupied"`
}

type PrintJob struct {
	ID          int64          `json:"id"`
	OrderItemID int64          `json:"order_item_id"`
	Status      PrintJobStatus `json:"status"`
	Attempts    int            `json:"attempts"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Terminal reports whether no further print attempt will happen without
// an explicit retry.
func (j PrintJob) Terminal() bool {
	return j.Status == PrintPrinted || j.Status == PrintCancelled
}
