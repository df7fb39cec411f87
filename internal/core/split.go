package core

// SplitSpec carries the inputs of one splitting strategy. Each strategy has
// its own concrete type with exactly the fields it needs, so a wrong-shaped
// request fails validation instead of silently producing malformed splits.
type SplitSpec interface {
	Type() SplitType
}

// EqualSplit divides the amount evenly over the group's participants.
type EqualSplit struct{}

func (EqualSplit) Type() SplitType { return SplitEqual }

// Share is a caller-supplied fixed amount for one participant.
type Share struct {
	ParticipantID string
	Amount        Money
}

// CustomSplit passes caller-supplied amounts through after checking that
// they add up to the expense amount.
type CustomSplit struct {
	Shares []Share
}

func (CustomSplit) Type() SplitType { return SplitCustom }

// Portion is a caller-supplied percentage share in basis points
// (100% = 10000).
type Portion struct {
	ParticipantID string
	BasisPoints   int64
}

// PercentSplit divides the amount proportionally; portions must total
// exactly 100%.
type PercentSplit struct {
	Portions []Portion
}

func (PercentSplit) Type() SplitType { return SplitPercentage }

// ComputeSplits turns an expense amount and a split strategy into the ordered
// per-participant shares. participantIDs is the group's participant list in
// insertion order; only the equal strategy reads it, the other strategies
// carry their own participant references.
//
// Whatever the strategy, the returned splits sum to amount exactly.
func ComputeSplits(amount Money, spec SplitSpec, participantIDs []string) ([]Split, error) {
	if amount.Cents <= 0 {
		return nil, ErrInvalidAmount
	}
	switch s := spec.(type) {
	case EqualSplit:
		return equalSplits(amount, participantIDs)
	case CustomSplit:
		return customSplits(amount, s.Shares)
	case PercentSplit:
		return percentSplits(amount, s.Portions)
	default:
		return nil, ErrUnknownSplitType
	}
}

// equalSplits gives everyone floor(amount/n) cents and hands the leftover
// cents out one each, in list order, starting from the first participant.
// The spread between any two shares is at most one cent.
func equalSplits(amount Money, participantIDs []string) ([]Split, error) {
	n := int64(len(participantIDs))
	if n == 0 {
		return nil, ErrEmptyParticipants
	}
	base := amount.Cents / n
	remainder := amount.Cents - base*n

	splits := make([]Split, 0, n)
	for _, id := range participantIDs {
		cents := base
		if remainder > 0 {
			cents++
			remainder--
		}
		splits = append(splits, Split{ParticipantID: id, Amount: Money{Cents: cents}})
	}
	return splits, nil
}

// customSplits validates that the supplied amounts cover the expense exactly
// and passes them through unchanged.
func customSplits(amount Money, shares []Share) ([]Split, error) {
	if len(shares) == 0 {
		return nil, ErrEmptyParticipants
	}
	var sum int64
	for _, sh := range shares {
		if sh.Amount.Cents < 0 {
			return nil, ErrInvalidAmount
		}
		sum += sh.Amount.Cents
	}
	if sum != amount.Cents {
		return nil, ErrSplitTotalMismatch
	}
	splits := make([]Split, 0, len(shares))
	for _, sh := range shares {
		splits = append(splits, Split{ParticipantID: sh.ParticipantID, Amount: sh.Amount})
	}
	return splits, nil
}

// percentSplits computes each share with half-up rounding and absorbs the
// rounding residual into the last portion, so the exact-sum invariant holds
// even when the individually rounded shares drift by a cent or two.
func percentSplits(amount Money, portions []Portion) ([]Split, error) {
	if len(portions) == 0 {
		return nil, ErrEmptyParticipants
	}
	var bpSum int64
	for _, p := range portions {
		if p.BasisPoints <= 0 {
			return nil, ErrInvalidPercent
		}
		bpSum += p.BasisPoints
	}
	if bpSum != BasisPointsTotal {
		return nil, ErrPercentTotalMismatch
	}

	splits := make([]Split, 0, len(portions))
	var assigned int64
	for i, p := range portions {
		var cents int64
		if i == len(portions)-1 {
			cents = amount.Cents - assigned
			if cents < 0 {
				return nil, &ComputationError{Detail: "percentage residual went negative"}
			}
		} else {
			// Half-up rounding in integer space.
			cents = (amount.Cents*p.BasisPoints + BasisPointsTotal/2) / BasisPointsTotal
			assigned += cents
		}
		splits = append(splits, Split{
			ParticipantID: p.ParticipantID,
			Amount:        Money{Cents: cents},
			BasisPoints:   p.BasisPoints,
		})
	}
	return splits, nil
}
