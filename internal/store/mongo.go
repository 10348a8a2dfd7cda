package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recycle-pickup-api-server/config"
	"recycle-pickup-api-server/internal/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	pickupsCollection   = "pickup_requests"
	campaignsCollection = "csr_campaigns"
	donationsCollection = "donations"
	metricsCollection   = "user_impact_metrics"
	usersCollection     = "users"
)

// Mongo is the production Store. Transactions need a replica set.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

var (
	_ Store = (*Mongo)(nil)
	_ Store = (*Memory)(nil)
)

// ConnectMongo dials the server with the decimal-aware registry and pings it.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	opts := options.Client().ApplyURI(cfg.URI).SetRegistry(Registry())
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &Mongo{client: client, db: client.Database(cfg.DBName)}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// EnsureIndexes creates the indexes the store relies on for uniqueness and
// for the leaderboard scan.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		pickupsCollection: {
			{Keys: bson.D{{Key: "userID", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "agentID", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "completedAt", Value: 1}}},
		},
		donationsCollection: {
			{Keys: bson.D{{Key: "pickupID", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userID", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, idx := range specs {
		if _, err := m.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (m *Mongo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start database session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	callback := func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	}
	_, err = session.WithTransaction(ctx, callback)
	return err
}

func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

func duplicate(err error, what string) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return err
}

// --- Pickups ---

func (m *Mongo) CreatePickup(ctx context.Context, p models.PickupRequest) error {
	if p.Version == 0 {
		p.Version = 1
	}
	_, err := m.db.Collection(pickupsCollection).InsertOne(ctx, p)
	return duplicate(err, "pickup "+p.ID)
}

func (m *Mongo) GetPickup(ctx context.Context, id string) (models.PickupRequest, error) {
	var p models.PickupRequest
	err := m.db.Collection(pickupsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	return p, notFound(err, "pickup "+id)
}

func (m *Mongo) ListPickups(ctx context.Context, f PickupFilter) ([]models.PickupRequest, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["userID"] = f.UserID
	}
	if f.AgentID != "" {
		filter["agentID"] = f.AgentID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.CommunityID != "" {
		filter["communityID"] = f.CommunityID
	}
	if !f.CompletedFrom.IsZero() || !f.CompletedTo.IsZero() {
		window := bson.M{"$ne": nil}
		if !f.CompletedFrom.IsZero() {
			window["$gte"] = f.CompletedFrom
		}
		if !f.CompletedTo.IsZero() {
			window["$lt"] = f.CompletedTo
		}
		filter["completedAt"] = window
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := m.db.Collection(pickupsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.PickupRequest
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.PickupRequest{}
	}
	return out, nil
}

func (m *Mongo) UpdatePickup(ctx context.Context, p models.PickupRequest, expectedVersion int64) (models.PickupRequest, error) {
	next := p.Clone()
	next.Version = expectedVersion + 1

	coll := m.db.Collection(pickupsCollection)
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": p.ID, "version": expectedVersion}, next)
	if err != nil {
		return models.PickupRequest{}, err
	}
	if res.MatchedCount == 0 {
		return models.PickupRequest{}, m.missingOrStale(ctx, coll, p.ID, "pickup")
	}
	return next, nil
}

// missingOrStale tells a lost version race from a missing document after a
// conditional write matched nothing.
func (m *Mongo) missingOrStale(ctx context.Context, coll *mongo.Collection, id, what string) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", what, id, ErrConflict)
}

// --- Campaigns ---

func (m *Mongo) CreateCampaign(ctx context.Context, c models.CSRCampaign) error {
	_, err := m.db.Collection(campaignsCollection).InsertOne(ctx, c)
	return duplicate(err, "campaign "+c.ID)
}

func (m *Mongo) GetCampaign(ctx context.Context, id string) (models.CSRCampaign, error) {
	var c models.CSRCampaign
	err := m.db.Collection(campaignsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	return c, notFound(err, "campaign "+id)
}

func (m *Mongo) ListCampaigns(ctx context.Context) ([]models.CSRCampaign, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := m.db.Collection(campaignsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.CSRCampaign
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.CSRCampaign{}
	}
	return out, nil
}

func (m *Mongo) SetCampaignActive(ctx context.Context, id string, active bool) error {
	res, err := m.db.Collection(campaignsCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": active}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	return nil
}

// ConsumeCampaignBudget is a single conditional update: the filter only
// matches while the remaining budget covers amount, so two concurrent
// completions can never overdraw the campaign.
func (m *Mongo) ConsumeCampaignBudget(ctx context.Context, id string, amount decimal.Decimal) error {
	d128, err := toDecimal128(amount)
	if err != nil {
		return err
	}
	neg, err := toDecimal128(amount.Neg())
	if err != nil {
		return err
	}

	coll := m.db.Collection(campaignsCollection)
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": id, "remainingBudget": bson.M{"$gte": d128}},
		bson.M{"$inc": bson.M{"remainingBudget": neg, "matchedTotal": d128}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return m.missingOrStale(ctx, coll, id, "campaign")
	}
	return nil
}

// --- Donations ---

func (m *Mongo) CreateDonation(ctx context.Context, d models.DonationRecord) error {
	_, err := m.db.Collection(donationsCollection).InsertOne(ctx, d)
	return duplicate(err, "donation for pickup "+d.PickupID)
}

func (m *Mongo) GetDonation(ctx context.Context, id string) (models.DonationRecord, error) {
	var d models.DonationRecord
	err := m.db.Collection(donationsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	return d, notFound(err, "donation "+id)
}

func (m *Mongo) ListDonations(ctx context.Context, userID string) ([]models.DonationRecord, error) {
	filter := bson.M{}
	if userID != "" {
		filter["userID"] = userID
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := m.db.Collection(donationsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.DonationRecord
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.DonationRecord{}
	}
	return out, nil
}

func (m *Mongo) UpdateDonationStatus(ctx context.Context, id string, from, to models.DonationStatus, at time.Time) (models.DonationRecord, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d models.DonationRecord
	err := m.db.Collection(donationsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": at}},
		opts).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return d, m.missingOrStale(ctx, m.db.Collection(donationsCollection), id, "donation")
	}
	return d, err
}

// --- Metrics ---

func (m *Mongo) GetMetrics(ctx context.Context, userID string) (models.UserImpactMetrics, error) {
	var um models.UserImpactMetrics
	err := m.db.Collection(metricsCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&um)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ZeroMetrics(userID), nil
	}
	if um.Badges == nil {
		um.Badges = []models.AwardedBadge{}
	}
	return um, err
}

// SaveMetrics inserts the first document for a user and afterwards replaces
// it conditionally on version. Two first completions racing on insert hit
// the _id unique index and one of them gets ErrConflict.
func (m *Mongo) SaveMetrics(ctx context.Context, um models.UserImpactMetrics, expectedVersion int64) (models.UserImpactMetrics, error) {
	next := um.Clone()
	next.Version = expectedVersion + 1
	coll := m.db.Collection(metricsCollection)

	if expectedVersion == 0 {
		if _, err := coll.InsertOne(ctx, next); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return models.UserImpactMetrics{}, fmt.Errorf("metrics %s: %w", um.UserID, ErrConflict)
			}
			return models.UserImpactMetrics{}, err
		}
		return next, nil
	}

	res, err := coll.ReplaceOne(ctx, bson.M{"_id": um.UserID, "version": expectedVersion}, next)
	if err != nil {
		return models.UserImpactMetrics{}, err
	}
	if res.MatchedCount == 0 {
		return models.UserImpactMetrics{}, fmt.Errorf("metrics %s: %w", um.UserID, ErrConflict)
	}
	return next, nil
}

// --- Users ---

func (m *Mongo) CreateUser(ctx context.Context, u models.User) error {
	_, err := m.db.Collection(usersCollection).InsertOne(ctx, u)
	return duplicate(err, "user "+u.Email)
}

func (m *Mongo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := m.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&u)
	return u, notFound(err, "user "+email)
}

func (m *Mongo) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := m.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	return u, notFound(err, "user "+id)
}

// IsUnavailable reports whether err means the database could not be reached
// in time, as opposed to a rejected operation.
func IsUnavailable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}
