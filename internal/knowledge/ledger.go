package knowledge

import "context"

// SuppressionReader answers conflict-ledger membership queries.
type SuppressionReader interface {
	// SuppressedAmong returns the subset of ids that appear in the suppressed
	// set of any conflict record.
	SuppressedAmong(ctx context.Context, ids []string) (map[string]bool, error)
}

// Ledger applies declared suppressions to ranked results.
type Ledger struct {
	reader SuppressionReader
}

// NewLedger wraps a suppression reader.
func NewLedger(reader SuppressionReader) *Ledger {
	return &Ledger{reader: reader}
}

// IsSuppressed reports whether the entry is suppressed by any record.
func (l *Ledger) IsSuppressed(ctx context.Context, entryID string) (bool, error) {
	set, err := l.reader.SuppressedAmong(ctx, []string{entryID})
	if err != nil {
		return false, err
	}
	return set[entryID], nil
}

// Filter removes suppressed entries, keeping order and scores intact.
func (l *Ledger) Filter(ctx context.Context, scored []Scored) ([]Scored, error) {
	if len(scored) == 0 {
		return scored, nil
	}
	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.Entry.ID
	}
	suppressed, err := l.reader.SuppressedAmong(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(suppressed) == 0 {
		return scored, nil
	}
	out := scored[:0]
	for _, s := range scored {
		if !suppressed[s.Entry.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}
