package membershipstore

import (
	"errors"
	"testing"

	"github.com/dalemusser/ghostwire/internal/testutil"
)

func TestAddAndExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")
	group := fx.CreateGroup(ctx, "general", alice.ID)

	if err := store.Add(ctx, group.ID, bob.ID); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ok, err := store.Exists(ctx, group.ID, bob.ID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("membership not found after Add")
	}

	ok, err = store.Exists(ctx, group.ID, "stranger")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("Exists reported a membership that was never added")
	}
}

func TestAddRejectsDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	group := fx.CreateGroup(ctx, "general", alice.ID)

	// The creator membership exists already.
	if err := store.Add(ctx, group.ID, alice.ID); !errors.Is(err, ErrDuplicateMembership) {
		t.Fatalf("err = %v, want ErrDuplicateMembership", err)
	}
}

func TestAddBatchCountsDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")
	carol := fx.CreateUser(ctx, "carol")
	group := fx.CreateGroup(ctx, "general", alice.ID)

	res, err := store.AddBatch(ctx, group.ID, []string{bob.ID, carol.ID, alice.ID})
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if res.Added != 2 || res.Duplicates != 1 {
		t.Fatalf("AddBatch = %+v, want 2 added and 1 duplicate", res)
	}

	count, err := store.CountByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("CountByGroup: %v", err)
	}
	if count != 3 {
		t.Errorf("group has %d members, want 3", count)
	}
}
