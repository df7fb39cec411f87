package core

// PlanSettlements turns net balances into an ordered list of pairwise
// transfers that settles the group.
//
// Balances are partitioned into debtors and creditors preserving their
// relative order; the walk then matches the current debtor against the
// current creditor with min(remaining, remaining) transfers. This is
// deliberately not the minimum-transaction matching: keeping participant
// order makes the plan deterministic and the walk O(n), which matters more
// here than shaving a transfer off a three-person group.
//
// Remaining amounts are compared as integer cents, so the walk cannot stall
// on rounding dust the way a float-equality version would. Assuming the
// input sums to zero, the emitted total equals the sum of positive balances
// and at most len(debtors)+len(creditors)-1 transfers are produced.
func PlanSettlements(balances []Balance) []Settlement {
	type side struct {
		id, name string
		cents    int64
	}
	var debtors, creditors []side
	for _, b := range balances {
		switch {
		case b.Net.Cents < 0:
			debtors = append(debtors, side{id: b.ParticipantID, name: b.Name, cents: -b.Net.Cents})
		case b.Net.Cents > 0:
			creditors = append(creditors, side{id: b.ParticipantID, name: b.Name, cents: b.Net.Cents})
		}
	}

	var settlements []Settlement
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		pay := debtors[i].cents
		if creditors[j].cents < pay {
			pay = creditors[j].cents
		}

		settlements = append(settlements, Settlement{
			FromID:   debtors[i].id,
			FromName: debtors[i].name,
			ToID:     creditors[j].id,
			ToName:   creditors[j].name,
			Amount:   Money{Cents: pay},
		})

		debtors[i].cents -= pay
		creditors[j].cents -= pay

		// Both cursors may advance in the same step.
		if debtors[i].cents == 0 {
			i++
		}
		if creditors[j].cents == 0 {
			j++
		}
	}
	return settlements
}
