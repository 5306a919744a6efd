package amqp

import (
	"encoding/json"
	"time"
)

// Entity names carried in change events.
const (
	EntityCategory   = "category"
	EntityExpense    = "expense"
	EntityPerson     = "person"
	EntityBorrowLend = "borrow_lend"
	EntitySettlement = "settlement"
)

// Operations carried in change events.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpImport  = "import"
	OpRestore = "restore"
)

// ChangeEvent announces a committed ledger mutation. It carries only the
// entity kind, id, and operation; consumers fetch current state from the
// database rather than trusting a payload that may be stale by delivery time.
type ChangeEvent struct {
	Entity    string    `json:"entity"`
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeEvent creates an event stamped with the current time.
func NewChangeEvent(entity string, id int64, op string) *ChangeEvent {
	return &ChangeEvent{
		Entity:    entity,
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON creates an event from JSON bytes
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
