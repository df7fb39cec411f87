package core

// AggregateBalances folds a group's expenses into a net balance per
// participant: the payer is credited the full expense amount and every
// split participant is debited their share. The fold is order-independent
// and exact, since everything stays in integer cents.
//
// Expenses referencing a payer or split participant outside the supplied
// participant set are skipped for that reference. This is a tolerance
// policy for stale references left behind by deletions, not a validation
// gate; validation happens before expenses are ever persisted.
//
// Balances are returned in participant order.
func AggregateBalances(participants []Participant, expenses []Expense) []Balance {
	idx := make(map[string]int, len(participants))
	balances := make([]Balance, len(participants))
	for i, p := range participants {
		idx[p.ID] = i
		balances[i] = Balance{ParticipantID: p.ID, Name: p.Name}
	}

	for _, e := range expenses {
		if e.Amount.Cents == 0 {
			continue
		}
		if i, ok := idx[e.PayerID]; ok {
			balances[i].Net.Cents += e.Amount.Cents
		}
		for _, s := range e.Splits {
			if i, ok := idx[s.ParticipantID]; ok {
				balances[i].Net.Cents -= s.Amount.Cents
			}
		}
	}
	return balances
}

// BalancesSum returns the cent sum of all net balances. For a consistent
// expense set it is exactly zero; anything else means a stale reference
// was skipped or an invariant broke upstream.
func BalancesSum(balances []Balance) int64 {
	var sum int64
	for _, b := range balances {
		sum += b.Net.Cents
	}
	return sum
}
