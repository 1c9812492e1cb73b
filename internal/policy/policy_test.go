package policy

import (
	"errors"
	"testing"

	"bankledger/internal/auth"
)

func stringPtr(value string) *string {
	return &value
}

func TestDecideAdminMayDoEverything(t *testing.T) {
	admin := auth.Identity{UserID: "admin-1", IsAdmin: true}
	ops := []Operation{
		OpCreateAccount, OpListAllAccounts, OpViewAccount, OpUpdateAccount,
		OpDeleteAccount, OpDeposit, OpTransfer, OpPromoteUser,
	}
	for _, op := range ops {
		if err := Decide(admin, op, nil); err != nil {
			t.Fatalf("Decide(admin, %s): unexpected error: %v", op, err)
		}
		if err := Decide(admin, op, stringPtr("someone-else")); err != nil {
			t.Fatalf("Decide(admin, %s, other owner): unexpected error: %v", op, err)
		}
	}
}

func TestDecideAdminOnlyOperations(t *testing.T) {
	user := auth.Identity{UserID: "user-1"}
	for _, op := range []Operation{OpCreateAccount, OpListAllAccounts, OpDeleteAccount, OpPromoteUser} {
		err := Decide(user, op, nil)
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("Decide(user, %s): expected ErrForbidden, got %v", op, err)
		}
	}
}

func TestDecideOwnerScopedOperations(t *testing.T) {
	user := auth.Identity{UserID: "user-1"}
	for _, op := range []Operation{OpViewAccount, OpUpdateAccount, OpDeposit, OpTransfer} {
		if err := Decide(user, op, stringPtr("user-1")); err != nil {
			t.Fatalf("Decide(owner, %s): unexpected error: %v", op, err)
		}
		if err := Decide(user, op, stringPtr("user-2")); !errors.Is(err, ErrForbidden) {
			t.Fatalf("Decide(non-owner, %s): expected ErrForbidden, got %v", op, err)
		}
	}
}

func TestDecideHouseAccountsAreAdminOnly(t *testing.T) {
	user := auth.Identity{UserID: "user-1"}
	if err := Decide(user, OpDeposit, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on unowned account, got %v", err)
	}
	admin := auth.Identity{UserID: "admin-1", IsAdmin: true}
	if err := Decide(admin, OpDeposit, nil); err != nil {
		t.Fatalf("unexpected error for admin on unowned account: %v", err)
	}
}

func TestDecideUnknownOperation(t *testing.T) {
	user := auth.Identity{UserID: "user-1"}
	if err := Decide(user, Operation("mint_money"), stringPtr("user-1")); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unknown operation, got %v", err)
	}
}
