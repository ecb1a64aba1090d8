package model

// Action kinds recorded in the audit trail. The strings are part of the
// sheet contract and must match what older clients wrote.
const (
	ActionLoadedTruck   = "Loaded Truck"
	ActionReturned      = "Returned to Shop"
	ActionTransferred   = "Transferred"
	ActionReceivedStock = "Received Stock"
	ActionUsedOnJob     = "Used on Job"
	ActionRestockedShop = "Restocked Shop"
	ActionQuickLoad     = "Quick Load"
	ActionAddedPart     = "Added Part"
)

// External endpoints that appear in From/To of audit entries but are not
// locations in the quantity map.
const (
	EndpointSupplier = "Supplier"
	EndpointCustomer = "Customer"
)

// HistoryEntry — append-only audit record. Timestamp is stored as the sheet
// cell text; ordering is by insertion, displayed newest-first.
type HistoryEntry struct {
	Timestamp string  `json:"timestamp"`
	Tech      string  `json:"tech"`
	Action    string  `json:"action"`
	Details   string  `json:"details"`
	Quantity  int     `json:"quantity"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	JobName   string  `json:"jobName,omitempty"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	OpID      string  `json:"opId,omitempty"`
}
