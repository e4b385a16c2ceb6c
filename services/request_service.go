package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/homefix/homefix-api/lifecycle"
	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/policy"
	"github.com/homefix/homefix-api/store"
	"github.com/homefix/homefix-api/utils"
	"go.uber.org/zap"
)

// maxTransitionAttempts bounds the re-read loop after a lost compare-and-set
const maxTransitionAttempts = 3

// CreateRequestInput is what a client submits when posting a job
type CreateRequestInput struct {
	ServiceType   string
	Description   string
	Location      string
	TechnicianID  string
	ScheduledDate *time.Time
	Image         *multipart.FileHeader
}

// ListOptions narrows ListForActor
type ListOptions struct {
	Status models.Status
}

// Stats summarizes the marketplace for the admin dashboard
type Stats struct {
	Users         map[models.Role]int   `json:"users"`
	Technicians   int                   `json:"technicians"`
	Requests      map[models.Status]int `json:"requests"`
	TotalRequests int                   `json:"totalRequests"`
}

// RequestService runs every service request operation: it checks the access
// policy, then the status machine, then persists through the store.
type RequestService struct {
	store  store.Store
	images *ImageService
	logger *zap.Logger
}

// NewRequestService creates a request service. images may be nil when
// attachments are disabled.
func NewRequestService(s store.Store, images *ImageService, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{store: s, images: images, logger: logger}
}

// CreateRequest validates and persists a new pending request owned by actor
func (s *RequestService) CreateRequest(ctx context.Context, actor policy.Actor, input CreateRequestInput) (*models.ServiceRequest, error) {
	if err := policy.Authorize(actor, nil, policy.ActionCreate); err != nil {
		return nil, fromDenial(err)
	}

	input.ServiceType = strings.TrimSpace(input.ServiceType)
	input.Description = strings.TrimSpace(input.Description)
	input.Location = strings.TrimSpace(input.Location)
	input.TechnicianID = strings.TrimSpace(input.TechnicianID)

	if input.Location == "" {
		client, err := s.store.GetUser(ctx, actor.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, persistenceError("failed to load client profile", err)
		}
		if client != nil {
			input.Location = strings.TrimSpace(client.Location)
		}
	}

	missing := []string{}
	if input.ServiceType == "" {
		missing = append(missing, "serviceType")
	}
	if input.Description == "" {
		missing = append(missing, "description")
	}
	if input.Location == "" {
		missing = append(missing, "location")
	}
	if len(missing) > 0 {
		return nil, validationError("missing required fields: "+strings.Join(missing, ", "), map[string]interface{}{"fields": missing})
	}

	req := &models.ServiceRequest{
		ClientID:      actor.ID,
		ServiceType:   input.ServiceType,
		Description:   input.Description,
		Location:      input.Location,
		ScheduledDate: input.ScheduledDate,
		Status:        models.StatusPending,
	}

	if input.TechnicianID != "" {
		if err := s.requireTechnician(ctx, input.TechnicianID); err != nil {
			return nil, err
		}
		techID := input.TechnicianID
		req.TechnicianID = &techID
	}

	if input.Image != nil {
		if s.images == nil {
			return nil, validationError("image attachments are not enabled", nil)
		}
		key, err := s.images.UploadImage(ctx, input.Image)
		if err != nil {
			return nil, imageError(err)
		}
		req.ImageKey = &key
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		if req.ImageKey != nil {
			if delErr := s.images.DeleteImage(ctx, *req.ImageKey); delErr != nil {
				s.logger.Warn("failed to remove orphaned attachment", zap.String("image_key", *req.ImageKey), zap.Error(delErr))
			}
		}
		return nil, persistenceError("failed to create service request", err)
	}

	s.logger.Info("service request created",
		zap.String("request_id", req.ID),
		zap.String("client_id", req.ClientID),
		zap.String("service_type", req.ServiceType),
	)
	return s.withImageURL(ctx, req), nil
}

// requireTechnician checks that id belongs to a technician account
func (s *RequestService) requireTechnician(ctx context.Context, id string) error {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return fromStore(err, "technician", "failed to load technician")
	}
	if user.Role != models.RoleTechnician {
		return validationError("technicianId does not reference a technician", map[string]interface{}{"technicianId": id})
	}
	return nil
}

// ListForActor returns the requests visible to actor, newest first
func (s *RequestService) ListForActor(ctx context.Context, actor policy.Actor, opts ListOptions) ([]models.ServiceRequest, error) {
	scope, err := policy.ScopeFor(actor)
	if err != nil {
		return nil, fromDenial(err)
	}
	if opts.Status != "" && !opts.Status.IsValid() {
		return nil, validationError("unknown status filter", map[string]interface{}{
			"status":           opts.Status,
			"allowed_statuses": models.Statuses,
		})
	}

	requests, err := s.store.QueryRequests(ctx, store.RequestFilter{
		ClientID:     scope.ClientID,
		TechnicianID: scope.TechnicianID,
		Status:       opts.Status,
	})
	if err != nil {
		return nil, persistenceError("failed to list service requests", err)
	}
	for i := range requests {
		s.withImageURL(ctx, &requests[i])
	}
	return requests, nil
}

// GetRequest returns one request if actor may read it
func (s *RequestService) GetRequest(ctx context.Context, actor policy.Actor, id string) (*models.ServiceRequest, error) {
	if err := requireActor(actor, policy.ActionRead); err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, fromStore(err, "request", "failed to load service request")
	}
	if err := policy.Authorize(actor, req, policy.ActionRead); err != nil {
		return nil, fromDenial(err)
	}
	return s.withImageURL(ctx, req), nil
}

// TransitionStatus moves a request to target on behalf of actor. Re-applying
// the current non-terminal status succeeds without writing. When another
// writer changes the status first, the request is re-read and the move is
// evaluated again against the new status.
func (s *RequestService) TransitionStatus(ctx context.Context, actor policy.Actor, id string, target models.Status) (*models.ServiceRequest, error) {
	if err := requireActor(actor, policy.ActionTransition); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		req, err := s.store.GetRequest(ctx, id)
		if err != nil {
			return nil, fromStore(err, "request", "failed to load service request")
		}

		if err := policy.Authorize(actor, req, policy.ActionForTarget(actor, target)); err != nil {
			return nil, fromDenial(err)
		}

		if req.Status == target && (attempt > 0 || !target.IsTerminal()) {
			return s.withImageURL(ctx, req), nil
		}

		if !req.HasTechnician() && !req.Status.IsTerminal() && target != models.StatusCancelled {
			return nil, &Error{
				Kind:    KindInvalidTransition,
				Message: "request has no assigned technician",
				Details: transitionDetails(req.Status, target, actor.Role),
				Err:     lifecycle.ErrInvalidTransition,
			}
		}

		next, err := lifecycle.Transition(req.Status, actor.Role, target)
		if err != nil {
			return nil, fromTransition(err, actor.Role)
		}

		updated, err := s.store.UpdateRequestStatus(ctx, id, req.Status, next)
		if errors.Is(err, store.ErrStatusConflict) {
			s.logger.Debug("status changed concurrently, re-evaluating",
				zap.String("request_id", id),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return nil, fromStore(err, "request", "failed to update service request status")
		}

		s.logger.Info("service request status changed",
			zap.String("request_id", id),
			zap.String("from", string(req.Status)),
			zap.String("to", string(next)),
			zap.String("actor_id", actor.ID),
			zap.String("actor_role", string(actor.Role)),
		)
		return s.withImageURL(ctx, updated), nil
	}

	return nil, persistenceError("service request kept changing, retry the operation", store.ErrStatusConflict)
}

// AssignTechnician points a pending request at a technician (admin only)
func (s *RequestService) AssignTechnician(ctx context.Context, actor policy.Actor, id, technicianID string) (*models.ServiceRequest, error) {
	if err := policy.AuthorizeAdmin(actor, policy.ActionAssign); err != nil {
		return nil, fromDenial(err)
	}
	technicianID = strings.TrimSpace(technicianID)
	if technicianID == "" {
		return nil, validationError("technicianId is required", nil)
	}

	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, fromStore(err, "request", "failed to load service request")
	}
	if err := s.requireTechnician(ctx, technicianID); err != nil {
		return nil, err
	}
	if req.Status != models.StatusPending {
		return nil, notPendingError(req.Status)
	}

	updated, err := s.store.AssignTechnician(ctx, id, technicianID, models.StatusPending)
	if errors.Is(err, store.ErrStatusConflict) {
		current, getErr := s.store.GetRequest(ctx, id)
		if getErr != nil {
			return nil, fromStore(getErr, "request", "failed to load service request")
		}
		return nil, notPendingError(current.Status)
	}
	if err != nil {
		return nil, fromStore(err, "request", "failed to assign technician")
	}

	s.logger.Info("technician assigned",
		zap.String("request_id", id),
		zap.String("technician_id", technicianID),
		zap.String("actor_id", actor.ID),
	)
	return s.withImageURL(ctx, updated), nil
}

func notPendingError(status models.Status) *Error {
	kind := KindInvalidTransition
	if status.IsTerminal() {
		kind = KindTerminalState
	}
	return &Error{
		Kind:    kind,
		Message: "technicians can only be assigned to pending requests",
		Details: map[string]interface{}{"current_status": status},
		Err:     lifecycle.ErrInvalidTransition,
	}
}

// DeleteRequest removes a request and its conversation (admin only)
func (s *RequestService) DeleteRequest(ctx context.Context, actor policy.Actor, id string) error {
	if err := policy.AuthorizeAdmin(actor, policy.ActionDelete); err != nil {
		return fromDenial(err)
	}
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return fromStore(err, "request", "failed to load service request")
	}
	if err := s.store.DeleteRequest(ctx, id); err != nil {
		return fromStore(err, "request", "failed to delete service request")
	}

	if req.ImageKey != nil && s.images != nil {
		if err := s.images.DeleteImage(ctx, *req.ImageKey); err != nil {
			s.logger.Warn("failed to delete attachment", zap.String("request_id", id), zap.Error(err))
		}
	}
	s.logger.Info("service request deleted", zap.String("request_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// PostMessage appends a message to a request's conversation
func (s *RequestService) PostMessage(ctx context.Context, actor policy.Actor, id, text string) (*models.RequestMessage, error) {
	req, err := s.authorizedRequest(ctx, actor, id, policy.ActionMessage)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("message text is required", nil)
	}

	msg := &models.RequestMessage{
		RequestID:  req.ID,
		SenderID:   actor.ID,
		SenderRole: actor.Role,
		Text:       text,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, persistenceError("failed to save message", err)
	}
	return msg, nil
}

// ListMessages returns a request's conversation, oldest first
func (s *RequestService) ListMessages(ctx context.Context, actor policy.Actor, id string) ([]models.RequestMessage, error) {
	req, err := s.authorizedRequest(ctx, actor, id, policy.ActionMessage)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, req.ID)
	if err != nil {
		return nil, persistenceError("failed to list messages", err)
	}
	return messages, nil
}

func (s *RequestService) authorizedRequest(ctx context.Context, actor policy.Actor, id string, action policy.Action) (*models.ServiceRequest, error) {
	if err := requireActor(actor, action); err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, fromStore(err, "request", "failed to load service request")
	}
	if err := policy.Authorize(actor, req, action); err != nil {
		return nil, fromDenial(err)
	}
	return req, nil
}

// Stats counts users by role and requests by status (admin only)
func (s *RequestService) Stats(ctx context.Context, actor policy.Actor) (*Stats, error) {
	if err := policy.AuthorizeAdmin(actor, policy.ActionRead); err != nil {
		return nil, fromDenial(err)
	}

	users, err := s.store.ListUsers(ctx, store.UserFilter{})
	if err != nil {
		return nil, persistenceError("failed to list users", err)
	}
	techs, err := s.store.ListTechnicians(ctx)
	if err != nil {
		return nil, persistenceError("failed to list technicians", err)
	}
	requests, err := s.store.QueryRequests(ctx, store.RequestFilter{})
	if err != nil {
		return nil, persistenceError("failed to list service requests", err)
	}

	stats := &Stats{
		Users:         map[models.Role]int{models.RoleClient: 0, models.RoleTechnician: 0, models.RoleAdmin: 0},
		Technicians:   len(techs),
		Requests:      make(map[models.Status]int, len(models.Statuses)),
		TotalRequests: len(requests),
	}
	for _, status := range models.Statuses {
		stats.Requests[status] = 0
	}
	for _, u := range users {
		stats.Users[u.Role]++
	}
	for _, r := range requests {
		stats.Requests[r.Status]++
	}
	return stats, nil
}

// withImageURL fills the computed attachment URL. A storage failure only
// drops the URL; the request itself is still returned.
func (s *RequestService) withImageURL(ctx context.Context, req *models.ServiceRequest) *models.ServiceRequest {
	if req.ImageKey == nil || s.images == nil {
		return req
	}
	url, err := s.images.GetImageURL(ctx, *req.ImageKey)
	if err != nil {
		s.logger.Warn("failed to resolve attachment URL", zap.String("request_id", req.ID), zap.Error(err))
		return req
	}
	req.ImageURL = &url
	return req
}

// imageError keeps upload validation failures as validation errors
func imageError(err error) *Error {
	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		return &Error{
			Kind:    KindValidation,
			Message: uploadErr.Message,
			Details: map[string]interface{}{"code": uploadErr.Code},
			Err:     err,
		}
	}
	return persistenceError("failed to store attachment", err)
}
