// Package listing implements the moderation lifecycle of shop listings and
// the read-side views derived from the full listing collection.
package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/dukandaar/internal/authz"
	"github.com/erazemk/dukandaar/internal/events"
	"github.com/erazemk/dukandaar/internal/imaging"
	"github.com/erazemk/dukandaar/internal/media"
	"github.com/erazemk/dukandaar/internal/metrics"
	"github.com/erazemk/dukandaar/internal/model"
	"github.com/erazemk/dukandaar/internal/points"
	"github.com/erazemk/dukandaar/internal/store"
	"github.com/erazemk/dukandaar/internal/validation"
)

// Authorizer decides whether a role may perform an action on an object.
type Authorizer interface {
	Allowed(role, obj, act string) bool
}

// Publisher delivers domain events.
type Publisher interface {
	Publish(topic string, payload any) error
}

// MediaStore holds listing photos.
type MediaStore interface {
	Upload(ctx context.Context, owner int64, raw []byte) (string, error)
	Owner(ctx context.Context, name string) (int64, error)
	DeleteURL(ctx context.Context, url string) error
}

// Service runs listing operations on behalf of an acting identity.
// Media and Events are optional.
type Service struct {
	DB     *sql.DB
	Authz  Authorizer
	Ledger *points.Ledger
	Media  MediaStore
	Events Publisher

	// Points granted per action. Zero selects the default.
	SubmissionAward int
	ReviewAward     int

	// Now returns the current time. Defaults to time.Now in UTC.
	Now func() time.Time
}

// Input is a new listing as submitted by a user. Images are data URLs or
// URLs of previously uploaded media.
type Input struct {
	Name         string   `json:"name" validate:"required"`
	OwnerName    string   `json:"owner_name" validate:"required"`
	Category     string   `json:"category" validate:"required,oneof=Food Clothing Services Groceries Electronics Other"`
	Description  string   `json:"description"`
	Phone        string   `json:"phone"`
	OpeningHours string   `json:"opening_hours"`
	Latitude     float64  `json:"latitude" validate:"latitude"`
	Longitude    float64  `json:"longitude" validate:"longitude"`
	Images       []string `json:"images" validate:"max=5"`
}

func (in *Input) sanitize() {
	in.Name = Sanitize(in.Name, model.MaxNameLength)
	in.OwnerName = Sanitize(in.OwnerName, model.MaxOwnerNameLength)
	in.Description = Sanitize(in.Description, model.MaxDescriptionLength)
	in.Phone = Sanitize(in.Phone, model.MaxPhoneLength)
	in.OpeningHours = Sanitize(in.OpeningHours, model.MaxHoursLength)
}

// Changes is a partial content edit. Nil fields are left as they are.
// A non-zero Version must match the stored version.
type Changes struct {
	Name         *string `json:"name"`
	OwnerName    *string `json:"owner_name"`
	Category     *string `json:"category"`
	Description  *string `json:"description"`
	Phone        *string `json:"phone"`
	OpeningHours *string `json:"opening_hours"`
	Version      int     `json:"version"`
}

// FailedImage describes an attachment that could not be stored.
type FailedImage struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// SubmitResult is the outcome of a submission.
type SubmitResult struct {
	Listing      *model.Listing `json:"listing"`
	Award        *points.Award  `json:"award,omitempty"`
	FailedImages []FailedImage  `json:"failed_images,omitempty"`
}

// ReviewInput is a new review.
type ReviewInput struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"required"`
}

// ReviewResult is the outcome of posting a review.
type ReviewResult struct {
	Review *model.Review `json:"review"`
	Award  *points.Award `json:"award,omitempty"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// role returns the role to authorize with. Until the role is resolved the
// actor is treated as a plain user.
func role(actor model.Identity) string {
	if actor.RoleResolved && actor.Role != "" {
		return actor.Role
	}
	return model.RoleUser
}

func (s *Service) allowed(actor model.Identity, obj, act string) bool {
	return actor.Authenticated() && s.Authz.Allowed(role(actor), obj, act)
}

func (s *Service) canModify(actor model.Identity, l *model.Listing, ownAct, anyAct string) bool {
	if s.allowed(actor, authz.ObjListing, anyAct) {
		return true
	}
	return l.SubmitterID == actor.UserID && s.allowed(actor, authz.ObjListing, ownAct)
}

// CanViewAll reports whether actor may see listings of every status.
func (s *Service) CanViewAll(actor model.Identity) bool {
	return s.allowed(actor, authz.ObjListing, authz.ActViewAll)
}

func (s *Service) visible(actor model.Identity, l *model.Listing) bool {
	if l.EffectiveStatus() == model.StatusApproved {
		return true
	}
	if actor.Authenticated() && l.SubmitterID == actor.UserID {
		return true
	}
	return s.CanViewAll(actor)
}

// Submit validates and stores a new pending listing, uploads its images and
// awards the submitter.
func (s *Service) Submit(ctx context.Context, actor model.Identity, in Input) (*SubmitResult, error) {
	if !s.allowed(actor, authz.ObjListing, authz.ActSubmit) {
		return nil, ErrUnauthorized
	}

	in.sanitize()
	if err := invalid(validation.Struct(&in)); err != nil {
		return nil, err
	}

	images, failed := s.storeImages(ctx, actor.UserID, in.Images)

	l, err := store.CreateListing(ctx, s.DB, &model.Listing{
		Name:           in.Name,
		OwnerName:      in.OwnerName,
		Category:       in.Category,
		Description:    in.Description,
		Phone:          in.Phone,
		OpeningHours:   in.OpeningHours,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Images:         images,
		SubmitterID:    actor.UserID,
		SubmitterName:  actor.Name,
		SubmitterEmail: actor.Email,
	})
	if err != nil {
		s.discardImages(ctx, in.Images, images)
		return nil, err
	}

	metrics.ListingsSubmitted.WithLabelValues(l.Category).Inc()
	slog.Info("listing submitted", "listing_id", l.ID, "category", l.Category, "user_id", actor.UserID, "images", len(images), "failed_images", len(failed))

	s.publish(events.TopicListingSubmitted, events.ListingSubmitted{
		ListingID:   l.ID,
		Name:        l.Name,
		Category:    l.Category,
		SubmitterID: actor.UserID,
		At:          l.CreatedAt,
	})

	return &SubmitResult{
		Listing:      l,
		Award:        s.award(ctx, actor.UserID, s.submissionAward(), "submission"),
		FailedImages: failed,
	}, nil
}

// storeImages resolves every attachment to a stored media URL owned by
// owner. Attachments that fail are reported and left out.
func (s *Service) storeImages(ctx context.Context, owner int64, refs []string) ([]string, []FailedImage) {
	stored := []string{}
	var failed []FailedImage

	fail := func(i int, reason string) {
		failed = append(failed, FailedImage{Index: i, Reason: reason})
		metrics.ImageUploadFailures.Inc()
		slog.Warn("listing image rejected", "index", i, "reason", reason)
	}

	for i, ref := range refs {
		if s.Media == nil {
			fail(i, "media storage unavailable")
			continue
		}

		if imaging.IsDataURL(ref) {
			raw, err := imaging.DecodeDataURL(ref)
			if err != nil {
				fail(i, err.Error())
				continue
			}
			url, err := s.Media.Upload(ctx, owner, raw)
			if err != nil {
				fail(i, err.Error())
				continue
			}
			stored = append(stored, url)
			continue
		}

		name, ok := media.NameFromURL(ref)
		if !ok {
			fail(i, "unsupported image reference")
			continue
		}
		uploader, err := s.Media.Owner(ctx, name)
		if errors.Is(err, media.ErrNotFound) {
			fail(i, "uploaded image not found")
			continue
		}
		if err != nil {
			fail(i, err.Error())
			continue
		}
		if uploader != owner {
			fail(i, "uploaded image belongs to another user")
			continue
		}
		stored = append(stored, ref)
	}

	return stored, failed
}

// discardImages removes objects uploaded for a submission that was not stored.
// Previously uploaded references are kept.
func (s *Service) discardImages(ctx context.Context, refs, stored []string) {
	if s.Media == nil {
		return
	}
	existing := make(map[string]bool, len(refs))
	for _, r := range refs {
		existing[r] = true
	}
	for _, url := range stored {
		if existing[url] {
			continue
		}
		if err := s.Media.DeleteURL(ctx, url); err != nil {
			slog.Warn("discarding uploaded image", "url", url, "error", err)
		}
	}
}

// Approve moves a pending listing to approved.
func (s *Service) Approve(ctx context.Context, actor model.Identity, id string) (*model.Listing, error) {
	return s.transition(ctx, actor, id, model.StatusApproved)
}

// Reject moves a pending listing to rejected.
func (s *Service) Reject(ctx context.Context, actor model.Identity, id string) (*model.Listing, error) {
	return s.transition(ctx, actor, id, model.StatusRejected)
}

func (s *Service) transition(ctx context.Context, actor model.Identity, id, status string) (*model.Listing, error) {
	if !s.allowed(actor, authz.ObjListing, authz.ActModerate) {
		return nil, ErrUnauthorized
	}

	ok, err := store.TransitionListing(ctx, s.DB, id, status, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.missingOr(ctx, id, ErrInvalidState)
	}

	l, err := store.GetListing(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrNotFound
	}

	metrics.ModerationDecisions.WithLabelValues(status).Inc()
	slog.Info("listing moderated", "listing_id", id, "status", status, "moderator_id", actor.UserID)

	s.publish(events.TopicListingModerated, events.ListingModerated{
		ListingID:   l.ID,
		Name:        l.Name,
		Status:      status,
		SubmitterID: l.SubmitterID,
		ModeratorID: actor.UserID,
		At:          l.UpdatedAt,
	})

	return l, nil
}

// missingOr returns ErrNotFound if the listing does not exist, otherwise err.
func (s *Service) missingOr(ctx context.Context, id string, err error) error {
	l, getErr := store.GetListing(ctx, s.DB, id)
	if getErr != nil {
		return getErr
	}
	if l == nil {
		return ErrNotFound
	}
	return err
}

// Edit updates the content fields of a listing. Status and moderation
// timestamps are never touched.
func (s *Service) Edit(ctx context.Context, actor model.Identity, id string, c Changes) (*model.Listing, error) {
	l, err := store.GetListing(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrNotFound
	}
	if !s.canModify(actor, l, authz.ActEditOwn, authz.ActEditAny) {
		return nil, ErrUnauthorized
	}

	in := Input{
		Name:         pick(c.Name, l.Name),
		OwnerName:    pick(c.OwnerName, l.OwnerName),
		Category:     pick(c.Category, l.Category),
		Description:  pick(c.Description, l.Description),
		Phone:        pick(c.Phone, l.Phone),
		OpeningHours: pick(c.OpeningHours, l.OpeningHours),
		Latitude:     l.Latitude,
		Longitude:    l.Longitude,
	}
	in.sanitize()
	if err := invalid(validation.Struct(&in)); err != nil {
		return nil, err
	}

	ok, err := store.UpdateListingContent(ctx, s.DB, id, store.ListingContent{
		Name:         in.Name,
		OwnerName:    in.OwnerName,
		Category:     in.Category,
		Description:  in.Description,
		Phone:        in.Phone,
		OpeningHours: in.OpeningHours,
	}, c.Version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.missingOr(ctx, id, ErrConflict)
	}

	slog.Info("listing edited", "listing_id", id, "user_id", actor.UserID)
	return store.GetListing(ctx, s.DB, id)
}

func pick(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

// Remove permanently deletes a listing, its reviews and its stored images.
func (s *Service) Remove(ctx context.Context, actor model.Identity, id string) error {
	l, err := store.GetListing(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if l == nil {
		return ErrNotFound
	}
	if !s.canModify(actor, l, authz.ActRemoveOwn, authz.ActRemoveAny) {
		return ErrUnauthorized
	}

	ok, err := store.DeleteListing(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	s.deleteImages(ctx, l)

	slog.Info("listing removed", "listing_id", id, "user_id", actor.UserID)
	return nil
}

// deleteImages removes the photos of a deleted listing. Only objects
// uploaded by the submitter are deleted.
func (s *Service) deleteImages(ctx context.Context, l *model.Listing) {
	if s.Media == nil {
		return
	}
	for _, url := range l.Images {
		name, ok := media.NameFromURL(url)
		if !ok {
			continue
		}
		owner, err := s.Media.Owner(ctx, name)
		if err != nil || owner != l.SubmitterID {
			if err != nil && !errors.Is(err, media.ErrNotFound) {
				slog.Warn("checking listing image owner", "listing_id", l.ID, "url", url, "error", err)
			}
			continue
		}
		if err := s.Media.DeleteURL(ctx, url); err != nil {
			slog.Warn("deleting listing image", "listing_id", l.ID, "url", url, "error", err)
		}
	}
}

// Verify stamps a listing as checked by an admin. A listing can be verified once.
func (s *Service) Verify(ctx context.Context, actor model.Identity, id string) (*model.Listing, error) {
	if !s.allowed(actor, authz.ObjListing, authz.ActVerify) {
		return nil, ErrUnauthorized
	}

	ok, err := store.VerifyListing(ctx, s.DB, id, actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.missingOr(ctx, id, ErrInvalidState)
	}

	slog.Info("listing verified", "listing_id", id, "admin_id", actor.UserID)
	return store.GetListing(ctx, s.DB, id)
}

// Get returns a listing the actor is allowed to see.
func (s *Service) Get(ctx context.Context, actor model.Identity, id string) (*model.Listing, error) {
	l, err := store.GetListing(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if l == nil || !s.visible(actor, l) {
		return nil, ErrNotFound
	}
	s.redact(actor, l)
	return l, nil
}

// redact hides the submitter's email from everyone but the submitter and
// admins.
func (s *Service) redact(actor model.Identity, l *model.Listing) {
	if actor.Authenticated() && l.SubmitterID == actor.UserID {
		return
	}
	if s.CanViewAll(actor) {
		return
	}
	l.SubmitterEmail = ""
}

// All returns the full listing collection, newest first.
func (s *Service) All(ctx context.Context) ([]model.Listing, error) {
	return store.ListListings(ctx, s.DB)
}

// List fetches the whole collection and projects it through q.
func (s *Service) List(ctx context.Context, actor model.Identity, q Query) ([]model.Listing, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	ls, err := q.Apply(all, actor, s.CanViewAll(actor))
	if err != nil {
		return nil, err
	}
	for i := range ls {
		s.redact(actor, &ls[i])
	}
	return ls, nil
}

// AddReview rates a listing visible to the actor and awards the reviewer.
func (s *Service) AddReview(ctx context.Context, actor model.Identity, listingID string, in ReviewInput) (*ReviewResult, error) {
	if !s.allowed(actor, authz.ObjReview, authz.ActCreate) {
		return nil, ErrUnauthorized
	}
	if _, err := s.Get(ctx, actor, listingID); err != nil {
		return nil, err
	}

	in.Comment = Sanitize(in.Comment, model.MaxCommentLength)
	if err := invalid(validation.Struct(&in)); err != nil {
		return nil, err
	}

	r, err := store.CreateReview(ctx, s.DB, listingID, actor.UserID, in.Rating, in.Comment)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("review for listing %s was not stored", listingID)
	}

	slog.Info("review added", "listing_id", listingID, "user_id", actor.UserID, "rating", in.Rating)
	return &ReviewResult{
		Review: r,
		Award:  s.award(ctx, actor.UserID, s.reviewAward(), "review"),
	}, nil
}

// Reviews returns the reviews of a listing visible to the actor.
func (s *Service) Reviews(ctx context.Context, actor model.Identity, listingID string) ([]model.Review, error) {
	if _, err := s.Get(ctx, actor, listingID); err != nil {
		return nil, err
	}
	reviews, err := store.ListReviews(ctx, s.DB, listingID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	return reviews, nil
}

func (s *Service) submissionAward() int {
	if s.SubmissionAward > 0 {
		return s.SubmissionAward
	}
	return points.SubmissionAward
}

func (s *Service) reviewAward() int {
	if s.ReviewAward > 0 {
		return s.ReviewAward
	}
	return points.ReviewAward
}

// award grants points after a completed action. A failed award is logged
// and does not undo the action.
func (s *Service) award(ctx context.Context, userID int64, delta int, reason string) *points.Award {
	if s.Ledger == nil {
		return nil
	}

	a, err := s.Ledger.AddPoints(ctx, userID, delta)
	if err != nil {
		slog.Error("awarding points", "user_id", userID, "reason", reason, "delta", delta, "error", err)
		return nil
	}

	metrics.RecordAward(reason, delta, a.Crossed)
	for _, m := range a.Crossed {
		slog.Info("milestone reached", "user_id", userID, "milestone", m, "total", a.Total)
		s.publish(events.TopicMilestone, events.MilestoneReached{
			UserID:    userID,
			Milestone: m,
			Total:     a.Total,
			Rank:      points.RankFor(m).Name,
			At:        s.now(),
		})
	}
	return a
}

func (s *Service) publish(topic string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(topic, payload); err != nil {
		slog.Warn("publishing event", "topic", topic, "error", err)
	}
}
