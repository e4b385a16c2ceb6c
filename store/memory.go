package store

import (
	"context"
	"sync"

	"github.com/homefix/homefix-api/models"
)

// MemoryStore keeps everything in process memory. It backs development runs
// and tests; data is lost on restart.
type MemoryStore struct {
	mu sync.RWMutex

	users     map[string]models.User
	userOrder []string
	emails    map[string]string
	techs     map[string]models.TechnicianProfile
	techOrder []string
	requests  map[string]models.ServiceRequest
	reqOrder  []string
	messages  map[string][]models.RequestMessage
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		emails:   make(map[string]string),
		techs:    make(map[string]models.TechnicianProfile),
		requests: make(map[string]models.ServiceRequest),
		messages: make(map[string][]models.RequestMessage),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func copyRequest(req models.ServiceRequest) *models.ServiceRequest {
	if req.TechnicianID != nil {
		tech := *req.TechnicianID
		req.TechnicianID = &tech
	}
	if req.ScheduledDate != nil {
		when := *req.ScheduledDate
		req.ScheduledDate = &when
	}
	if req.ImageKey != nil {
		key := *req.ImageKey
		req.ImageKey = &key
	}
	req.ImageURL = nil
	return &req
}

func copyTechnician(profile models.TechnicianProfile) *models.TechnicianProfile {
	if profile.CompletionRate != nil {
		rate := *profile.CompletionRate
		profile.CompletionRate = &rate
	}
	return &profile
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareUser(user)
	if _, taken := s.emails[user.Email]; taken {
		return ErrDuplicate
	}
	if _, taken := s.users[user.ID]; taken {
		return ErrDuplicate
	}
	s.users[user.ID] = *user
	s.userOrder = append(s.userOrder, user.ID)
	s.emails[user.Email] = user.ID
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	user := s.users[id]
	return &user, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, patch UserPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.IsEmpty() {
		return &user, nil
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Phone != nil {
		user.Phone = *patch.Phone
	}
	if patch.Location != nil {
		user.Location = *patch.Location
	}
	user.UpdatedAt = now()
	s.users[id] = user
	return &user, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		user := s.users[id]
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	delete(s.emails, user.Email)
	s.userOrder = removeID(s.userOrder, id)
	return nil
}

func (s *MemoryStore) CreateTechnician(ctx context.Context, profile *models.TechnicianProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.techs[profile.UserID]; taken {
		return ErrDuplicate
	}
	prepareTechnician(profile)
	s.techs[profile.UserID] = *copyTechnician(*profile)
	s.techOrder = append(s.techOrder, profile.UserID)
	return nil
}

func (s *MemoryStore) GetTechnician(ctx context.Context, userID string) (*models.TechnicianProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.techs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTechnician(profile), nil
}

func (s *MemoryStore) UpdateTechnician(ctx context.Context, userID string, patch TechnicianPatch) (*models.TechnicianProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.techs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.IsEmpty() {
		return copyTechnician(profile), nil
	}
	if patch.Name != nil {
		profile.Name = *patch.Name
	}
	if patch.ServiceType != nil {
		profile.ServiceType = *patch.ServiceType
	}
	if patch.Location != nil {
		profile.Location = *patch.Location
	}
	if patch.HourlyRate != nil {
		profile.HourlyRate = *patch.HourlyRate
	}
	if patch.Available != nil {
		profile.Available = *patch.Available
	}
	if patch.Bio != nil {
		profile.Bio = *patch.Bio
	}
	profile.UpdatedAt = now()
	s.techs[userID] = profile
	return copyTechnician(profile), nil
}

func (s *MemoryStore) ListTechnicians(ctx context.Context) ([]models.TechnicianProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]models.TechnicianProfile, 0, len(s.techOrder))
	for _, id := range s.techOrder {
		profiles = append(profiles, *copyTechnician(s.techs[id]))
	}
	return profiles, nil
}

func (s *MemoryStore) DeleteTechnician(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.techs[userID]; !ok {
		return ErrNotFound
	}
	delete(s.techs, userID)
	s.techOrder = removeID(s.techOrder, userID)
	return nil
}

func (s *MemoryStore) CreateRequest(ctx context.Context, req *models.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareRequest(req)
	if _, taken := s.requests[req.ID]; taken {
		return ErrDuplicate
	}
	s.requests[req.ID] = *copyRequest(*req)
	s.reqOrder = append(s.reqOrder, req.ID)
	return nil
}

func (s *MemoryStore) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRequest(req), nil
}

func (s *MemoryStore) QueryRequests(ctx context.Context, filter RequestFilter) ([]models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := make([]models.ServiceRequest, 0)
	// walk insertion order backwards for newest first
	for i := len(s.reqOrder) - 1; i >= 0; i-- {
		req := s.requests[s.reqOrder[i]]
		if filter.ClientID != "" && req.ClientID != filter.ClientID {
			continue
		}
		if filter.TechnicianID != "" && !req.IsAssignedTo(filter.TechnicianID) {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		requests = append(requests, *copyRequest(req))
	}
	return requests, nil
}

func (s *MemoryStore) UpdateRequestStatus(ctx context.Context, id string, from, to models.Status) (*models.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status != from {
		return nil, ErrStatusConflict
	}
	req.Status = to
	req.UpdatedAt = now()
	s.requests[id] = req
	return copyRequest(req), nil
}

func (s *MemoryStore) AssignTechnician(ctx context.Context, id, technicianID string, expected models.Status) (*models.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status != expected {
		return nil, ErrStatusConflict
	}
	req.TechnicianID = &technicianID
	req.UpdatedAt = now()
	s.requests[id] = req
	return copyRequest(req), nil
}

func (s *MemoryStore) DeleteRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[id]; !ok {
		return ErrNotFound
	}
	delete(s.requests, id)
	delete(s.messages, id)
	s.reqOrder = removeID(s.reqOrder, id)
	return nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, msg *models.RequestMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareMessage(msg)
	s.messages[msg.RequestID] = append(s.messages[msg.RequestID], *msg)
	return nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, requestID string) ([]models.RequestMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]models.RequestMessage, len(s.messages[requestID]))
	copy(messages, s.messages[requestID])
	return messages, nil
}
