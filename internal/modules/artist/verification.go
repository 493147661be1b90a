package artist

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EventVerificationStatus is pushed to the applicant after a review.
const EventVerificationStatus = "verification_status_updated"

const (
	maxLinks      = 10
	maxArtistName = 100
	maxBioLength  = 5000
	notifyTimeout = 5 * time.Second
)

var (
	ErrRequestNotFound   = errors.New("verification request not found")
	ErrAlreadyReviewed   = errors.New("verification request was already reviewed")
	ErrAlreadyVerified   = errors.New("you are already a verified artist")
	ErrPendingExists     = errors.New("a verification request is already pending")
	errArtistNameMissing = errors.New("artistName is required")
	errArtistNameLong    = fmt.Errorf("artistName exceeds %d characters", maxArtistName)
	errBioTooLong        = fmt.Errorf("bio exceeds %d characters", maxBioLength)
	errTooManyLinks      = fmt.Errorf("at most %d links are allowed", maxLinks)
	errInvalidLink       = errors.New("links must be http(s) URLs")
)

type VerificationDTO struct {
	ArtistName string   `json:"artistName"`
	Bio        string   `json:"bio"`
	Links      []string `json:"links"`
}

type ReviewDTO struct {
	Note string `json:"note"`
}

// StatusPayload is the body of verification_status_updated.
type StatusPayload struct {
	UserID     string `json:"userId"`
	Status     string `json:"status"`
	IsVerified bool   `json:"isVerified"`
}

// Users is the part of the user service verification needs.
type Users interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetVerified(ctx context.Context, id string, verified bool, artistName, bio string) error
}

// Notifier persists a notification and pushes live events.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
	Deliver(principalID, event string, payload any) bool
}

type VerificationService struct {
	coll     *mongo.Collection
	users    Users
	notifier Notifier
	logger   *zap.Logger
}

func NewVerificationService(db *mongo.Database, users Users, notifier Notifier, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		coll:     db.Collection(database.VerificationRequests),
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

func normalizeSubmission(dto VerificationDTO) (VerificationDTO, error) {
	out := VerificationDTO{
		ArtistName: strings.TrimSpace(dto.ArtistName),
		Bio:        strings.TrimSpace(dto.Bio),
		Links:      []string{},
	}
	switch {
	case out.ArtistName == "":
		return out, errArtistNameMissing
	case len([]rune(out.ArtistName)) > maxArtistName:
		return out, errArtistNameLong
	case len([]rune(out.Bio)) > maxBioLength:
		return out, errBioTooLong
	}
	seen := map[string]struct{}{}
	for _, raw := range dto.Links {
		link := strings.TrimSpace(raw)
		if link == "" {
			continue
		}
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return out, errInvalidLink
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		out.Links = append(out.Links, link)
	}
	if len(out.Links) > maxLinks {
		return out, errTooManyLinks
	}
	return out, nil
}

// Submit files a new request. Verified users and users with a pending
// request are turned away.
func (s *VerificationService) Submit(ctx context.Context, userID string, dto VerificationDTO) (*models.VerificationRequest, error) {
	clean, err := normalizeSubmission(dto)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u != nil && u.IsVerified {
		return nil, ErrAlreadyVerified
	}
	n, err := s.coll.CountDocuments(ctx, bson.M{"userId": userID, "status": models.VerificationPending})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrPendingExists
	}

	req := &models.VerificationRequest{
		UserID:     userID,
		ArtistName: clean.ArtistName,
		Bio:        clean.Bio,
		Links:      clean.Links,
		Status:     models.VerificationPending,
	}
	req.ID = models.NewID()
	req.Touch(time.Now())
	if _, err := s.coll.InsertOne(ctx, req); err != nil {
		return nil, fmt.Errorf("insert verification request: %w", err)
	}
	return req, nil
}

// Latest returns the user's most recent request or nil.
func (s *VerificationService) Latest(ctx context.Context, userID string) (*models.VerificationRequest, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var req models.VerificationRequest
	if err := s.coll.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (s *VerificationService) List(ctx context.Context, status string, q pagination.Query) ([]models.VerificationRequest, response.Pagination, error) {
	filter := bson.M{}
	if status = strings.TrimSpace(status); status != "" {
		filter["status"] = status
	}
	items := []models.VerificationRequest{}
	pag, err := pagination.Paginate(ctx, s.coll, filter, bson.D{{Key: "createdAt", Value: -1}}, q, &items)
	return items, pag, err
}

// Review resolves a pending request. Only the pending -> approved|rejected
// transition is allowed.
func (s *VerificationService) Review(ctx context.Context, id, reviewerID string, approve bool, note string) (*models.VerificationRequest, error) {
	status := models.VerificationRejected
	if approve {
		status = models.VerificationApproved
	}
	now := time.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var req models.VerificationRequest
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.VerificationPending},
		bson.M{"$set": bson.M{
			"status":     status,
			"note":       strings.TrimSpace(note),
			"reviewedBy": reviewerID,
			"reviewedAt": now,
			"updatedAt":  now,
		}},
		opts,
	).Decode(&req)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		n, cerr := s.coll.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return nil, cerr
		}
		if n == 0 {
			return nil, ErrRequestNotFound
		}
		return nil, ErrAlreadyReviewed
	}

	if approve {
		if err := s.users.SetVerified(ctx, req.UserID, true, req.ArtistName, req.Bio); err != nil {
			return nil, fmt.Errorf("mark user verified: %w", err)
		}
	}
	s.announce(&req)
	return &req, nil
}

func (s *VerificationService) announce(req *models.VerificationRequest) {
	if s.notifier == nil {
		return
	}
	approved := req.Status == models.VerificationApproved
	s.notifier.Deliver(req.UserID, EventVerificationStatus, StatusPayload{
		UserID:     req.UserID,
		Status:     req.Status,
		IsVerified: approved,
	})

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, reviewNotification(req)); err != nil {
		s.logger.Warn("verification notification failed", zap.String("user", req.UserID), zap.Error(err))
	}
}

func reviewNotification(req *models.VerificationRequest) *models.Notification {
	n := &models.Notification{
		RecipientID: req.UserID,
		SenderID:    req.ReviewedBy,
		Type:        models.NotificationVerification,
		Data:        map[string]any{"requestId": req.ID, "status": req.Status},
	}
	if req.Status == models.VerificationApproved {
		n.Title = "Verification approved"
		n.Message = fmt.Sprintf("You are now a verified artist as %s.", req.ArtistName)
	} else {
		n.Title = "Verification rejected"
		n.Message = "Your artist verification request was not approved."
		if req.Note != "" {
			n.Message += " " + req.Note
		}
	}
	return n
}
