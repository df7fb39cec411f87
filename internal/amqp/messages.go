package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseCategorizeMessage asks the worker to classify one expense. It
// carries the description so the worker can classify without a database
// read, but the verdict is still written against the id.
type ExpenseCategorizeMessage struct {
	ExpenseID   string    `json:"expense_id"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseCategorizeMessage creates a categorize request for an expense.
func NewExpenseCategorizeMessage(expenseID, description string) *ExpenseCategorizeMessage {
	return &ExpenseCategorizeMessage{
		ExpenseID:   expenseID,
		Description: description,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ExpenseCategorizeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCategorizeMessageFromJSON creates a message from JSON bytes.
func ExpenseCategorizeMessageFromJSON(data []byte) (*ExpenseCategorizeMessage, error) {
	var msg ExpenseCategorizeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ExpenseID == "" {
		return nil, errEmptyExpenseID
	}
	return &msg, nil
}
