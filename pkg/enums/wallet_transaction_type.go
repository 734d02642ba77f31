package enums

import "fmt"

// WalletTransactionType classifies entries in the wallet ledger. Amounts are
// signed: payment_sent and withdrawal carry negative amounts, payment_received
// and deposit positive ones.
type WalletTransactionType string

const (
	WalletTransactionTypePaymentSent     WalletTransactionType = "payment_sent"
	WalletTransactionTypePaymentReceived WalletTransactionType = "payment_received"
	WalletTransactionTypeDeposit         WalletTransactionType = "deposit"
	WalletTransactionTypeWithdrawal      WalletTransactionType = "withdrawal"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypePaymentSent,
	WalletTransactionTypePaymentReceived,
	WalletTransactionTypeDeposit,
	WalletTransactionTypeWithdrawal,
}

// String implements fmt.Stringer.
func (t WalletTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the type is recognized.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
