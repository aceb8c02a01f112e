package entity

const (
	OpDebit  = "debit"
	OpCredit = "credit"
)

// LedgerOp is one balance adjustment that must commit atomically with the
// room-state transition it accompanies.
type LedgerOp struct {
	Kind   string
	UserID string
	Amount int64
}

func Debit(userID string, amount int64) LedgerOp {
	return LedgerOp{Kind: OpDebit, UserID: userID, Amount: amount}
}

func Credit(userID string, amount int64) LedgerOp {
	return LedgerOp{Kind: OpCredit, UserID: userID, Amount: amount}
}
