package core

// GroupSummary is a compact read model for a group dashboard: the running
// total next to every participant's net position.
type GroupSummary struct {
	GroupID    string
	GroupName  string
	TotalSpent Money
	Balances   []Balance
}
