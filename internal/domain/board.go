package domain

// StationKey identifies the preparation station an item queues on. Stations
// are discovered from whatever recipe groups show up in the data; items whose
// recipe belongs to no group all share the ungrouped key.
type StationKey struct {
	Grouped bool
	ID      int64
}

func GroupedStation(id int64) StationKey { return StationKey{Grouped: true, ID: id} }

// Ungrouped is the station for items without a recipe group.
var Ungrouped = StationKey{}

// BoardItem is one active order item as the kitchen board endpoint returns
// it: the item itself plus denormalized order context for display. Timestamps
// stay raw strings on the wire; the board re-parses them through a memo cache
// on every render tick.
type BoardItem struct {
	ID                  int64           `json:"id"`
	OrderID             int64           `json:"order_id"`
	OrderZone           string          `json:"order_zone"`
	OrderTable          string          `json:"order_table"`
	WaiterName          string          `json:"waiter_name"`
	Quantity            int             `json:"quantity"`
	IsTakeaway          bool            `json:"is_takeaway"`
	CustomizationsCount int             `json:"customizations_count"`
	Notes               string          `json:"notes,omitempty"`
	Status              OrderItemStatus `json:"status"`
	CreatedAt           string          `json:"created_at"`
	PreparingAt         string          `json:"preparing_at,omitempty"`
}

// BoardRecipe groups the active items of one recipe, carrying the recipe
// group that maps it onto a station.
type BoardRecipe struct {
	RecipeID        int64       `json:"recipe_id"`
	RecipeName      string      `json:"recipe_name"`
	RecipeGroupID   *int64      `json:"recipe_group_id,omitempty"`
	RecipeGroupName string      `json:"recipe_group_name,omitempty"`
	PreparationTime int         `json:"preparation_time"` // minutes
	Items           []BoardItem `json:"items"`
}

func (r BoardRecipe) Station() StationKey {
	if r.RecipeGroupID == nil {
		return Ungrouped
	}
	return GroupedStation(*r.RecipeGroupID)
}
