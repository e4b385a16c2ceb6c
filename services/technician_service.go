package services

import (
	"context"

	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/policy"
	"github.com/homefix/homefix-api/ranking"
	"github.com/homefix/homefix-api/store"
	"go.uber.org/zap"
)

// MaxRecommendations caps the limit callers may ask for
const MaxRecommendations = 20

// TechnicianService serves the technician directory and recommendations
type TechnicianService struct {
	store  store.Store
	logger *zap.Logger
}

// NewTechnicianService creates a technician service
func NewTechnicianService(s store.Store, logger *zap.Logger) *TechnicianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TechnicianService{store: s, logger: logger}
}

// List returns the technicians matching criteria in registration order
func (s *TechnicianService) List(ctx context.Context, actor policy.Actor, criteria ranking.Criteria) ([]models.TechnicianProfile, error) {
	if err := requireActor(actor, policy.ActionRead); err != nil {
		return nil, err
	}
	techs, err := s.store.ListTechnicians(ctx)
	if err != nil {
		return nil, persistenceError("failed to list technicians", err)
	}
	return ranking.Filter(techs, criteria), nil
}

// Recommend ranks the matching technicians and returns the best limit of them
// with their scores. A non-positive limit uses ranking.DefaultLimit.
func (s *TechnicianService) Recommend(ctx context.Context, actor policy.Actor, criteria ranking.Criteria, limit int) ([]ranking.Scored, error) {
	if limit > MaxRecommendations {
		return nil, validationError("limit is too large", map[string]interface{}{"max": MaxRecommendations})
	}
	techs, err := s.List(ctx, actor, criteria)
	if err != nil {
		return nil, err
	}
	return ranking.RankScored(techs, limit), nil
}

// Get returns one technician profile
func (s *TechnicianService) Get(ctx context.Context, actor policy.Actor, id string) (*models.TechnicianProfile, error) {
	if err := requireActor(actor, policy.ActionRead); err != nil {
		return nil, err
	}
	tech, err := s.store.GetTechnician(ctx, id)
	if err != nil {
		return nil, fromStore(err, "technician", "failed to load technician")
	}
	return tech, nil
}

// Delete removes a technician listing (admin only). The account remains.
func (s *TechnicianService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if err := policy.AuthorizeAdmin(actor, policy.ActionDelete); err != nil {
		return fromDenial(err)
	}
	if err := s.store.DeleteTechnician(ctx, id); err != nil {
		return fromStore(err, "technician", "failed to delete technician")
	}
	s.logger.Info("technician profile deleted", zap.String("technician_id", id), zap.String("actor_id", actor.ID))
	return nil
}
