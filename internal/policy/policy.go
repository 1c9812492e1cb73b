// Package policy is the pure authorization decision for every ledger
// operation. It holds no state and performs no IO: callers resolve the
// resource owner from the store and pass it in together with the verified
// token identity.
package policy

import (
	"errors"
	"fmt"

	"bankledger/internal/auth"
)

var ErrForbidden = errors.New("forbidden")

type Operation string

const (
	OpCreateAccount   Operation = "create_account"
	OpListAllAccounts Operation = "list_all_accounts"
	OpViewAccount     Operation = "view_account"
	OpUpdateAccount   Operation = "update_account"
	OpDeleteAccount   Operation = "delete_account"
	OpDeposit         Operation = "deposit"
	OpTransfer        Operation = "transfer"
	OpPromoteUser     Operation = "promote_user"
)

// Decide returns nil when the identity may perform op, or an error wrapping
// ErrForbidden. resourceOwner is the owning user id of the targeted account,
// nil for unowned (house) accounts and for operations without a resource.
//
// Admins may do everything. Non-admins are limited to accounts they own;
// a nil owner never matches, so house accounts are admin-only.
func Decide(id auth.Identity, op Operation, resourceOwner *string) error {
	if id.IsAdmin {
		return nil
	}
	switch op {
	case OpCreateAccount, OpListAllAccounts, OpDeleteAccount, OpPromoteUser:
		return fmt.Errorf("%w: admin privileges required", ErrForbidden)
	case OpViewAccount, OpUpdateAccount, OpDeposit, OpTransfer:
		if resourceOwner != nil && *resourceOwner == id.UserID {
			return nil
		}
		return fmt.Errorf("%w: account not owned by caller", ErrForbidden)
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrForbidden, op)
	}
}
