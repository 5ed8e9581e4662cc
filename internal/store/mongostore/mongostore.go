// Package mongostore implements the store interfaces on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"brasul/fretes/internal/db"
	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/models"
	"brasul/fretes/internal/store"
	"brasul/fretes/internal/textfold"
)

const (
	freightsCollection       = "freights"
	agentsCollection         = "agents"
	referralsCollection      = "freight_agent_referrals"
	municipalitiesCollection = "municipalities"
)

// Store implements store.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

func New(client *mongo.Client, database *mongo.Database, logger *zap.Logger) *Store {
	return &Store{client: client, db: database, logger: logger}
}

// EnsureIndexes creates the indexes the queries rely on. The unique index on
// agents.code is what turns a concurrent code allocation into a duplicate
// key error.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(agentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create agents index: %w", err)
	}
	_, err = s.db.Collection(freightsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "cargo_type", Value: 1}}},
		{Keys: bson.D{{Key: "truck_type", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create freights indexes: %w", err)
	}
	_, err = s.db.Collection(referralsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "agent_code", Value: 1}, {Key: "contact_date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create referrals index: %w", err)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	return db.DisconnectDB(s.client, s.logger)
}

// freightFilter translates the filter predicates into a bson query. Missing
// and null values never satisfy $gte or $lte.
func freightFilter(filter freight.Filter) (bson.M, error) {
	preds := filter.Predicates()
	conds := make(bson.A, 0, len(preds))
	for _, p := range preds {
		var cond bson.M
		switch p.Op {
		case freight.OpContains:
			cond = bson.M{p.Field: primitive.Regex{Pattern: regexp.QuoteMeta(p.Value.(string)), Options: "i"}}
		case freight.OpSuffix:
			cond = bson.M{p.Field: primitive.Regex{Pattern: regexp.QuoteMeta(p.Value.(string)) + "$", Options: "i"}}
		case freight.OpEquals:
			cond = bson.M{p.Field: p.Value}
		case freight.OpGte:
			cond = bson.M{p.Field: bson.M{"$gte": p.Value}}
		case freight.OpLte:
			cond = bson.M{p.Field: bson.M{"$lte": p.Value}}
		case freight.OpIsTrue:
			cond = bson.M{p.Field: true}
		default:
			return nil, fmt.Errorf("unsupported filter operator %d", p.Op)
		}
		conds = append(conds, cond)
	}
	switch len(conds) {
	case 0:
		return bson.M{}, nil
	case 1:
		return conds[0].(bson.M), nil
	default:
		return bson.M{"$and": conds}, nil
	}
}

func (s *Store) InsertFreight(ctx context.Context, f *models.Freight) error {
	f.GenIDIfEmpty()
	if _, err := s.db.Collection(freightsCollection).InsertOne(ctx, f); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return fmt.Errorf("insert freight %s: %w", f.ID, db.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert freight: %w", err)
	}
	return nil
}

func (s *Store) FindFreightByID(ctx context.Context, id string) (*models.Freight, error) {
	var f models.Freight
	err := s.db.Collection(freightsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find freight: %w", err)
	}
	return &f, nil
}

func (s *Store) SearchFreights(ctx context.Context, filter freight.Filter, page freight.Page) ([]models.Freight, error) {
	query, err := freightFilter(filter)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Limit()))

	cursor, err := s.db.Collection(freightsCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute freight search query: %w", err)
	}
	defer cursor.Close(ctx)

	result := []models.Freight{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode freights: %w", err)
	}
	return result, nil
}

func (s *Store) CountFreights(ctx context.Context, filter freight.Filter) (int64, error) {
	query, err := freightFilter(filter)
	if err != nil {
		return 0, err
	}
	n, err := s.db.Collection(freightsCollection).CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count freights: %w", err)
	}
	return n, nil
}

func (s *Store) DistinctFreightValues(ctx context.Context, field string) ([]string, error) {
	switch field {
	case store.FacetOrigin, store.FacetDestination, store.FacetCargoType, store.FacetTruckType:
	default:
		return nil, fmt.Errorf("unsupported facet field %q", field)
	}
	raw, err := s.db.Collection(freightsCollection).Distinct(ctx, field, bson.M{field: bson.M{"$ne": ""}})
	if err != nil {
		return nil, fmt.Errorf("failed to list distinct %s: %w", field, err)
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok {
			values = append(values, str)
		}
	}
	sort.Strings(values)
	return values, nil
}

func (s *Store) LatestFreightCreatedAt(ctx context.Context) (*time.Time, error) {
	var f models.Freight
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	err := s.db.Collection(freightsCollection).FindOne(ctx, bson.M{}, opts).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest freight time: %w", err)
	}
	return &f.CreatedAt, nil
}

// DeleteFreightsCreatedBefore removes old listings together with their
// referrals.
func (s *Store) DeleteFreightsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	coll := s.db.Collection(freightsCollection)
	filter := bson.M{"created_at": bson.M{"$lt": cutoff}}

	cursor, err := coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, fmt.Errorf("failed to find old freights: %w", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return 0, fmt.Errorf("failed to decode old freights: %w", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	ids := make(bson.A, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}

	res, err := coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete old freights: %w", err)
	}
	if _, err := s.db.Collection(referralsCollection).DeleteMany(ctx, bson.M{"freight_id": bson.M{"$in": ids}}); err != nil {
		return res.DeletedCount, fmt.Errorf("failed to delete referrals of old freights: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) InsertAgent(ctx context.Context, a *models.Agent) error {
	a.GenIDIfEmpty()
	if _, err := s.db.Collection(agentsCollection).InsertOne(ctx, a); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return fmt.Errorf("insert agent %s: %w", a.Code, db.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert agent: %w", err)
	}
	return nil
}

// MaxAgentCode orders numerically by sorting on code length first.
func (s *Store) MaxAgentCode(ctx context.Context) (string, bool, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$project", Value: bson.M{"code": 1, "len": bson.M{"$strLenCP": "$code"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "len", Value: -1}, {Key: "code", Value: -1}}}},
		{{Key: "$limit", Value: 1}},
	}
	cursor, err := s.db.Collection(agentsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return "", false, fmt.Errorf("failed to read highest agent code: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return "", false, fmt.Errorf("failed to read highest agent code: %w", err)
		}
		return "", false, nil
	}
	var doc struct {
		Code string `bson:"code"`
	}
	if err := cursor.Decode(&doc); err != nil {
		return "", false, fmt.Errorf("failed to decode agent code: %w", err)
	}
	return doc.Code, true, nil
}

func (s *Store) FindAgentByCode(ctx context.Context, code string) (*models.Agent, error) {
	var a models.Agent
	err := s.db.Collection(agentsCollection).FindOne(ctx, bson.M{"code": code}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find agent: %w", err)
	}
	return &a, nil
}

func (s *Store) ListAgents(ctx context.Context, activeOnly bool) ([]models.Agent, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "code", Value: 1}})
	cursor, err := s.db.Collection(agentsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer cursor.Close(ctx)

	agents := []models.Agent{}
	if err := cursor.All(ctx, &agents); err != nil {
		return nil, fmt.Errorf("failed to decode agents: %w", err)
	}
	return agents, nil
}

func (s *Store) SetAgentActive(ctx context.Context, code string, active bool) error {
	res, err := s.db.Collection(agentsCollection).UpdateOne(ctx,
		bson.M{"code": code},
		bson.M{"$set": bson.M{"active": active}})
	if err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// InsertReferral checks both references since MongoDB has no foreign keys.
func (s *Store) InsertReferral(ctx context.Context, r *models.AgentReferral) error {
	n, err := s.db.Collection(freightsCollection).CountDocuments(ctx, bson.M{"_id": r.FreightID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check referral freight: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("referral freight %s: %w", r.FreightID, store.ErrNotFound)
	}
	n, err = s.db.Collection(agentsCollection).CountDocuments(ctx, bson.M{"code": r.AgentCode}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check referral agent: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("referral agent %s: %w", r.AgentCode, store.ErrNotFound)
	}

	r.GenIDIfEmpty()
	if _, err := s.db.Collection(referralsCollection).InsertOne(ctx, r); err != nil {
		return fmt.Errorf("failed to insert referral: %w", err)
	}
	return nil
}

func (s *Store) ListReferrals(ctx context.Context, agentCode string, limit int) ([]models.AgentReferral, error) {
	filter := bson.M{}
	if agentCode != "" {
		filter["agent_code"] = agentCode
	}
	opts := options.Find().SetSort(bson.D{{Key: "contact_date", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.db.Collection(referralsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer cursor.Close(ctx)

	result := []models.AgentReferral{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode referrals: %w", err)
	}
	return result, nil
}

// municipalityFilter matches the whole name case-insensitively when exact,
// otherwise any name containing q.Name with or without accents.
func municipalityFilter(q store.MunicipalityQuery) bson.M {
	filter := bson.M{}
	if q.Exact {
		filter["name"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Name) + "$", Options: "i"}
	} else {
		filter["name"] = primitive.Regex{Pattern: textfold.Pattern(q.Name)}
	}
	if q.State != "" {
		filter["state"] = q.State
	}
	return filter
}

func (s *Store) SearchMunicipalities(ctx context.Context, q store.MunicipalityQuery) ([]models.Municipality, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cursor, err := s.db.Collection(municipalitiesCollection).Find(ctx, municipalityFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search municipalities: %w", err)
	}
	defer cursor.Close(ctx)

	result := []models.Municipality{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode municipalities: %w", err)
	}
	return result, nil
}
