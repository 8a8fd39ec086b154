package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/storage"
)

// Storage is a MongoDB-backed implementation of the storage interface.
// Scores rely on single-document atomic updates and games on a
// version-checked replace, so no multi-document transactions are needed
// and a standalone server is sufficient.
type Storage struct {
	client *mongo.Client
	db     *mongo.Database
	config Config
}

// New connects to MongoDB, verifies the connection and creates indexes
func New(ctx context.Context, cfg Config) (*Storage, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Storage{
		client: client,
		db:     client.Database(cfg.Database),
		config: cfg,
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		// Sparse so users without an email never collide
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = s.db.Collection(scoresCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "points", Value: -1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create score indexes: %w", err)
	}

	_, err = s.db.Collection(gamesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create game indexes: %w", err)
	}
	return nil
}

// Close disconnects the client
func (s *Storage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks MongoDB connectivity
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// nextSeq atomically increments and returns a named counter
func (s *Storage) nextSeq(ctx context.Context, name string) (int64, error) {
	var counter counterDoc
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s counter: %w", name, err)
	}
	return counter.Value, nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.db.Collection(usersCollection).InsertOne(ctx, toUserDoc(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": string(id)})
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, model.ErrUserNotFound
	}
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Storage) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDoc
	if err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Storage) GetUsers(ctx context.Context, ids []model.UserID) (map[model.UserID]*model.User, error) {
	result := make(map[model.UserID]*model.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}

	cursor, err := s.db.Collection(usersCollection).Find(ctx, bson.M{"_id": bson.M{"$in": raw}})
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for _, doc := range docs {
		result[model.UserID(doc.ID)] = doc.toModel()
	}
	return result, nil
}

// Score operations

func (s *Storage) EnsureScore(ctx context.Context, userID model.UserID, now time.Time) (*model.Score, error) {
	return s.accrue(ctx, userID, 0, now)
}

func (s *Storage) IncrementScore(ctx context.Context, userID model.UserID, delta int64, now time.Time) (*model.Score, error) {
	return s.accrue(ctx, userID, delta, now)
}

// accrue adds delta to an existing score, creating the record on first use.
// Every update is filtered on the remaining headroom under model.MaxPoints.
// A zero delta leaves updated_at untouched.
func (s *Storage) accrue(ctx context.Context, userID model.UserID, delta int64, now time.Time) (*model.Score, error) {
	if !model.CanAccrue(0, delta) {
		return nil, model.ErrScoreOverflow
	}

	coll := s.db.Collection(scoresCollection)
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)
	guarded := bson.M{"_id": string(userID), "points": bson.M{"$lte": model.MaxPoints - delta}}

	update := bson.M{"$inc": bson.M{"points": delta}}
	if delta != 0 {
		update["$set"] = bson.M{"updated_at": now}
	}

	var doc scoreDoc
	err := coll.FindOneAndUpdate(ctx, guarded, update, after).Decode(&doc)
	if err == nil {
		return doc.toModel(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update score: %w", err)
	}

	// No match: either there is no record yet or the cap would be passed
	count, err := coll.CountDocuments(ctx, bson.M{"_id": string(userID)}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to check score: %w", err)
	}
	if count > 0 {
		return nil, model.ErrScoreOverflow
	}

	seq, err := s.nextSeq(ctx, scoreCounter)
	if err != nil {
		return nil, err
	}

	onInsert := bson.M{"seq": seq, "created_at": now}
	upsert := bson.M{
		"$inc":         bson.M{"points": delta},
		"$setOnInsert": onInsert,
	}
	if delta != 0 {
		upsert["$set"] = bson.M{"updated_at": now}
	} else {
		onInsert["updated_at"] = now
	}

	err = coll.FindOneAndUpdate(ctx, guarded, upsert, options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(true)).Decode(&doc)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// Lost an insert race; the record exists now so a plain update applies
		err = coll.FindOneAndUpdate(ctx, guarded, update, after).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrScoreOverflow
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create score: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Storage) GetScore(ctx context.Context, userID model.UserID) (*model.Score, error) {
	var doc scoreDoc
	if err := s.db.Collection(scoresCollection).FindOne(ctx, bson.M{"_id": string(userID)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrScoreNotFound
		}
		return nil, fmt.Errorf("failed to get score: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Storage) TopScores(ctx context.Context, n int) ([]*model.Score, error) {
	scores := []*model.Score{}
	if n <= 0 {
		return scores, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "points", Value: -1}, {Key: "seq", Value: 1}}).
		SetLimit(int64(n))

	cursor, err := s.db.Collection(scoresCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}

	var docs []scoreDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode scores: %w", err)
	}
	for _, doc := range docs {
		scores = append(scores, doc.toModel())
	}
	return scores, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	seq, err := s.nextSeq(ctx, gameCounter)
	if err != nil {
		return err
	}
	game.Seq = seq

	if _, err := s.db.Collection(gamesCollection).InsertOne(ctx, toGameDoc(game, 1)); err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	doc, err := s.findGame(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *Storage) findGame(ctx context.Context, id model.GameID) (*gameDoc, error) {
	var doc gameDoc
	if err := s.db.Collection(gamesCollection).FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &doc, nil
}

func (s *Storage) ListGames(ctx context.Context, status model.GameStatus) ([]*model.Game, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}

	cursor, err := s.db.Collection(gamesCollection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	var docs []gameDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode games: %w", err)
	}

	games := make([]*model.Game, 0, len(docs))
	for _, doc := range docs {
		games = append(games, doc.toModel())
	}
	return games, nil
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.UpdateGameFunc) (*model.Game, error) {
	coll := s.db.Collection(gamesCollection)

	for attempt := 0; attempt < s.config.MaxUpdateRetries; attempt++ {
		current, err := s.findGame(ctx, id)
		if err != nil {
			return nil, err
		}

		game := current.toModel()
		if err := fn(game); err != nil {
			return nil, err
		}

		res, err := coll.ReplaceOne(ctx,
			bson.M{"_id": current.ID, "version": current.Version},
			toGameDoc(game, current.Version+1),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update game: %w", err)
		}
		if res.MatchedCount == 1 {
			return game, nil
		}
	}

	return nil, model.ErrConcurrentModified
}
