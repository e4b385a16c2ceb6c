package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/homefix/homefix-api/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection       = "users"
	techniciansCollection = "technician_profiles"
	requestsCollection    = "service_requests"
	messagesCollection    = "request_messages"
)

// MongoStore implements Store on MongoDB. Documents use string UUIDs as _id so
// ids look the same on every backend.
type MongoStore struct {
	db          *mongo.Database
	users       *mongo.Collection
	technicians *mongo.Collection
	requests    *mongo.Collection
	messages    *mongo.Collection
}

// NewMongoStore binds the store to a database
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:          db,
		users:       db.Collection(usersCollection),
		technicians: db.Collection(techniciansCollection),
		requests:    db.Collection(requestsCollection),
		messages:    db.Collection(messagesCollection),
	}
}

// EnsureIndexes creates the unique email index and the query indexes
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create email index: %w", err)
	}

	if _, err := s.requests.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "technician_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create service request indexes: %w", err)
	}

	if _, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "request_id", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create message index: %w", err)
	}
	return nil
}

func (s *MongoStore) Name() string { return "mongo" }

// Ping verifies the server is reachable
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func mongoNotFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// requestFilterDoc translates a RequestFilter into a query document
func requestFilterDoc(filter RequestFilter) bson.M {
	doc := bson.M{}
	if filter.ClientID != "" {
		doc["client_id"] = filter.ClientID
	}
	if filter.TechnicianID != "" {
		doc["technician_id"] = filter.TechnicianID
	}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	return doc
}

func userPatchDoc(patch UserPatch) bson.M {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	return set
}

func technicianPatchDoc(patch TechnicianPatch) bson.M {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.ServiceType != nil {
		set["service_type"] = *patch.ServiceType
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.HourlyRate != nil {
		set["hourly_rate"] = *patch.HourlyRate
	}
	if patch.Available != nil {
		set["available"] = *patch.Available
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	return set
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	prepareUser(user)
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, mongoNotFoundOr(err, "failed to fetch user %s", id)
	}
	return &user, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"email": NormalizeEmail(email)}).Decode(&user); err != nil {
		return nil, mongoNotFoundOr(err, "failed to fetch user by email")
	}
	return &user, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, id string, patch UserPatch) (*models.User, error) {
	set := userPatchDoc(patch)
	if len(set) == 0 {
		return s.GetUser(ctx, id)
	}
	set["updated_at"] = now()

	var user models.User
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, afterUpdate()).Decode(&user); err != nil {
		return nil, mongoNotFoundOr(err, "failed to update user %s", id)
	}
	return &user, nil
}

func (s *MongoStore) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	cursor, err := s.users.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateTechnician(ctx context.Context, profile *models.TechnicianProfile) error {
	prepareTechnician(profile)
	if _, err := s.technicians.InsertOne(ctx, profile); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create technician profile: %w", err)
	}
	return nil
}

func (s *MongoStore) GetTechnician(ctx context.Context, userID string) (*models.TechnicianProfile, error) {
	var profile models.TechnicianProfile
	if err := s.technicians.FindOne(ctx, bson.M{"_id": userID}).Decode(&profile); err != nil {
		return nil, mongoNotFoundOr(err, "failed to fetch technician %s", userID)
	}
	return &profile, nil
}

func (s *MongoStore) UpdateTechnician(ctx context.Context, userID string, patch TechnicianPatch) (*models.TechnicianProfile, error) {
	set := technicianPatchDoc(patch)
	if len(set) == 0 {
		return s.GetTechnician(ctx, userID)
	}
	set["updated_at"] = now()

	var profile models.TechnicianProfile
	if err := s.technicians.FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": set}, afterUpdate()).Decode(&profile); err != nil {
		return nil, mongoNotFoundOr(err, "failed to update technician %s", userID)
	}
	return &profile, nil
}

func (s *MongoStore) ListTechnicians(ctx context.Context) ([]models.TechnicianProfile, error) {
	cursor, err := s.technicians.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}
	profiles := make([]models.TechnicianProfile, 0)
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode technicians: %w", err)
	}
	return profiles, nil
}

func (s *MongoStore) DeleteTechnician(ctx context.Context, userID string) error {
	res, err := s.technicians.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete technician %s: %w", userID, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateRequest(ctx context.Context, req *models.ServiceRequest) error {
	prepareRequest(req)
	if _, err := s.requests.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("failed to create service request: %w", err)
	}
	return nil
}

func (s *MongoStore) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	if err := s.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		return nil, mongoNotFoundOr(err, "failed to fetch service request %s", id)
	}
	return &req, nil
}

func (s *MongoStore) QueryRequests(ctx context.Context, filter RequestFilter) ([]models.ServiceRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.requests.Find(ctx, requestFilterDoc(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query service requests: %w", err)
	}
	requests := make([]models.ServiceRequest, 0)
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode service requests: %w", err)
	}
	return requests, nil
}

// UpdateRequestStatus matches on both id and status so the write only lands
// if nobody changed the status since it was read
func (s *MongoStore) UpdateRequestStatus(ctx context.Context, id string, from, to models.Status) (*models.ServiceRequest, error) {
	update := bson.M{"$set": bson.M{"status": to, "updated_at": now()}}
	return s.conditionalUpdate(ctx, id, from, update)
}

func (s *MongoStore) AssignTechnician(ctx context.Context, id, technicianID string, expected models.Status) (*models.ServiceRequest, error) {
	update := bson.M{"$set": bson.M{"technician_id": technicianID, "updated_at": now()}}
	return s.conditionalUpdate(ctx, id, expected, update)
}

func (s *MongoStore) conditionalUpdate(ctx context.Context, id string, expected models.Status, update bson.M) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	err := s.requests.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": expected}, update, afterUpdate()).Decode(&req)
	if err == nil {
		return &req, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update service request %s: %w", id, err)
	}

	count, err := s.requests.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to check service request %s: %w", id, err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrStatusConflict
}

// DeleteRequest removes the thread before the request so a failure never
// leaves messages pointing at a deleted request.
func (s *MongoStore) DeleteRequest(ctx context.Context, id string) error {
	count, err := s.requests.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to find service request %s: %w", id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	if _, err := s.messages.DeleteMany(ctx, bson.M{"request_id": id}); err != nil {
		return fmt.Errorf("failed to delete messages of service request %s: %w", id, err)
	}
	res, err := s.requests.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete service request %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateMessage(ctx context.Context, msg *models.RequestMessage) error {
	prepareMessage(msg)
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (s *MongoStore) ListMessages(ctx context.Context, requestID string) ([]models.RequestMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"request_id": requestID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	messages := make([]models.RequestMessage, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}
