package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/dukandaar/internal/db"
	"github.com/erazemk/dukandaar/internal/model"
)

func newListing(submitter *model.User, name string) *model.Listing {
	return &model.Listing{
		Name:           name,
		OwnerName:      "Owner",
		Category:       model.CategoryFood,
		Latitude:       18.52,
		Longitude:      73.85,
		Images:         []string{"/media/a.jpg"},
		SubmitterID:    submitter.ID,
		SubmitterName:  submitter.DisplayName,
		SubmitterEmail: submitter.Email,
	}
}

func TestCreateAndGetListing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "s@example.com", "S", "hash", model.RoleUser)

	l, err := CreateListing(ctx, database, newListing(user, "Chai Stall"))
	if err != nil {
		t.Fatalf("CreateListing: %v", err)
	}
	if l.ID == "" {
		t.Fatal("expected generated id")
	}
	if l.EffectiveStatus() != model.StatusPending {
		t.Errorf("expected pending, got %q", l.Status)
	}
	if len(l.Images) != 1 || l.Images[0] != "/media/a.jpg" {
		t.Errorf("unexpected images: %v", l.Images)
	}
	if l.Version != 1 {
		t.Errorf("expected version 1, got %d", l.Version)
	}

	missing, err := GetListing(ctx, database, "nope")
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing listing")
	}
}

func TestTransitionListingOnlyFromPending(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "s@example.com", "S", "hash", model.RoleUser)
	l, _ := CreateListing(ctx, database, newListing(user, "Shop"))

	now := time.Now().UTC()
	ok, err := TransitionListing(ctx, database, l.ID, model.StatusApproved, now)
	if err != nil {
		t.Fatalf("TransitionListing: %v", err)
	}
	if !ok {
		t.Fatal("expected first transition to apply")
	}

	ok, err = TransitionListing(ctx, database, l.ID, model.StatusRejected, now)
	if err != nil {
		t.Fatalf("TransitionListing: %v", err)
	}
	if ok {
		t.Error("expected transition from approved to be refused")
	}

	got, _ := GetListing(ctx, database, l.ID)
	if got.Status != model.StatusApproved {
		t.Errorf("expected approved, got %q", got.Status)
	}
	if got.ApprovedAt == nil {
		t.Error("expected approved_at to be set")
	}
	if got.RejectedAt != nil {
		t.Error("expected rejected_at to stay unset")
	}
}

func TestTransitionListingNullStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "s@example.com", "S", "hash", model.RoleUser)
	l, _ := CreateListing(ctx, database, newListing(user, "Legacy"))
	if _, err := database.Exec(`UPDATE listings SET status = NULL WHERE id = ?`, l.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := GetListing(ctx, database, l.ID)
	if got.Status != "" || got.EffectiveStatus() != model.StatusPending {
		t.Fatalf("expected missing status read as pending, got %q", got.Status)
	}

	ok, err := TransitionListing(ctx, database, l.ID, model.StatusRejected, time.Now())
	if err != nil {
		t.Fatalf("TransitionListing: %v", err)
	}
	if !ok {
		t.Error("expected listing with missing status to be rejectable")
	}
}

func TestUpdateListingContentVersion(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "s@example.com", "S", "hash", model.RoleUser)
	l, _ := CreateListing(ctx, database, newListing(user, "Old"))

	content := ListingContent{Name: "New", OwnerName: "Owner", Category: model.CategoryOther}
	ok, err := UpdateListingContent(ctx, database, l.ID, content, l.Version)
	if err != nil || !ok {
		t.Fatalf("UpdateListingContent: ok=%v err=%v", ok, err)
	}

	// Stale version.
	ok, err = UpdateListingContent(ctx, database, l.ID, content, l.Version)
	if err != nil {
		t.Fatalf("UpdateListingContent: %v", err)
	}
	if ok {
		t.Error("expected stale version to be refused")
	}

	// Version 0 skips the check.
	ok, _ = UpdateListingContent(ctx, database, l.ID, content, 0)
	if !ok {
		t.Error("expected unchecked update to apply")
	}

	got, _ := GetListing(ctx, database, l.ID)
	if got.Name != "New" || got.Category != model.CategoryOther {
		t.Errorf("content not updated: %+v", got)
	}
	if got.EffectiveStatus() != model.StatusPending {
		t.Errorf("edit changed status to %q", got.Status)
	}
	if got.Version != 3 {
		t.Errorf("expected version 3, got %d", got.Version)
	}
}

func TestVerifyListingOnce(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "s@example.com", "S", "hash", model.RoleAdmin)
	l, _ := CreateListing(ctx, database, newListing(user, "Shop"))

	ok, _ := VerifyListing(ctx, database, l.ID, user.ID, time.Now())
	if !ok {
		t.Fatal("expected first verification to apply")
	}
	ok, _ = VerifyListing(ctx, database, l.ID, user.ID, time.Now())
	if ok {
		t.Error("expected second verification to be refused")
	}
}

func TestDeleteListingRemovesReviews(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "s@example.com", "S", "hash", model.RoleUser)
	l, _ := CreateListing(ctx, database, newListing(user, "Shop"))
	if _, err := CreateReview(ctx, database, l.ID, user.ID, 4, "good"); err != nil {
		t.Fatalf("CreateReview: %v", err)
	}

	ok, err := DeleteListing(ctx, database, l.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteListing: ok=%v err=%v", ok, err)
	}

	reviews, _ := ListReviews(ctx, database, l.ID)
	if len(reviews) != 0 {
		t.Errorf("expected reviews to be deleted, got %d", len(reviews))
	}

	ok, _ = DeleteListing(ctx, database, l.ID)
	if ok {
		t.Error("expected second delete to report missing listing")
	}
}

func TestListListingsWithRatings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "s@example.com", "S", "hash", model.RoleUser)
	first, _ := CreateListing(ctx, database, newListing(user, "First"))
	CreateListing(ctx, database, newListing(user, "Second"))
	CreateReview(ctx, database, first.ID, user.ID, 5, "great")
	CreateReview(ctx, database, first.ID, user.ID, 3, "ok")

	listings, err := ListListings(ctx, database)
	if err != nil {
		t.Fatalf("ListListings: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	for _, l := range listings {
		if l.ID == first.ID {
			if l.ReviewCount != 2 || l.AverageRating != 4 {
				t.Errorf("expected 2 reviews averaging 4, got %d / %v", l.ReviewCount, l.AverageRating)
			}
		}
	}
}
