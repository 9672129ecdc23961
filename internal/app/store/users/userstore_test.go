package userstore

import (
	"errors"
	"testing"

	"github.com/dalemusser/ghostwire/internal/domain/models"
	"github.com/dalemusser/ghostwire/internal/testutil"
)

func TestCreateNormalizesAndAssignsID(t *testing.T) {
	store := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{
		Username:     "  alice  ",
		Email:        "  Alice@Example.COM ",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" {
		t.Error("id not assigned")
	}
	if u.Username != "alice" {
		t.Errorf("username = %q, want alice", u.Username)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want alice@example.com", u.Email)
	}
}

func TestCreateRejectsInvalidFields(t *testing.T) {
	store := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{Username: "ab", Email: "a@b.co", PasswordHash: "h"})
	if !errors.Is(err, models.ErrBadUsername) {
		t.Errorf("short username: err = %v, want ErrBadUsername", err)
	}

	_, err = store.Create(ctx, models.User{Username: "alice", Email: "not-an-email", PasswordHash: "h"})
	if !errors.Is(err, models.ErrBadEmail) {
		t.Errorf("bad email: err = %v, want ErrBadEmail", err)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	store := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}
	if _, err := store.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := models.User{Username: "other", Email: "ALICE@example.com", PasswordHash: "h"}
	if _, err := store.Create(ctx, dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("duplicate email: err = %v, want ErrDuplicateEmail", err)
	}
}

func TestGetByEmail(t *testing.T) {
	store := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username: "alice", Email: "alice@example.com", PasswordHash: "h",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.GetByEmail(ctx, "Alice@Example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got id %s, want %s", got.ID, created.ID)
	}

	if _, err := store.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user: err = %v, want ErrNotFound", err)
	}
}

func TestSearch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, name := range []string{"alice", "alicia", "bob"} {
		_, err := store.Create(ctx, models.User{
			Username: name, Email: name + "@example.com", PasswordHash: "h",
		})
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	found, err := store.Search(ctx, "ali", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Search(ali) returned %d users, want 2", len(found))
	}

	found, err = store.Search(ctx, "bob@", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].Username != "bob" {
		t.Fatalf("Search(bob@) = %v, want bob by email", found)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	store := New(testutil.SetupTestDB(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username: "alice", Email: "alice@example.com", PasswordHash: "h",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	color := "#ff0044"
	updated, err := store.UpdateProfile(ctx, created.ID, ProfileUpdate{Color: &color})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Color == nil || *updated.Color != color {
		t.Errorf("color = %v, want %s", updated.Color, color)
	}
	if updated.Username != "alice" {
		t.Errorf("username changed to %q on a color-only update", updated.Username)
	}

	bad := "ab"
	if _, err := store.UpdateProfile(ctx, created.ID, ProfileUpdate{Username: &bad}); !errors.Is(err, models.ErrBadUsername) {
		t.Errorf("short username: err = %v, want ErrBadUsername", err)
	}
}
