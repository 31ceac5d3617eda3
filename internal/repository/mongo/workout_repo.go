// internal/repository/mongo/workout_repo.go
package mongo

import (
	"alcyxob/workout-ledger/internal/domain"
	"alcyxob/workout-ledger/internal/repository"
	"context"
	"encoding/hex"
	"errors"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Each user gets their own collection: workouts_<userID>.
const workoutCollectionPrefix = "workouts_"

const (
	resubscribeMinDelay = 500 * time.Millisecond
	resubscribeMaxDelay = 30 * time.Second
)

// mongoLedgerRepository implements repository.LedgerRepository
type mongoLedgerRepository struct {
	db      *mongo.Database
	indexed sync.Map // collection name -> struct{}, once indexes were requested
}

// NewMongoLedgerRepository creates a new per-user workout ledger repository.
func NewMongoLedgerRepository(db *mongo.Database) repository.LedgerRepository {
	return &mongoLedgerRepository{db: db}
}

// CollectionName maps a user id to its collection. Ids with characters that
// MongoDB rejects in collection names are hex encoded.
func CollectionName(userID string) string {
	for _, c := range userID {
		if !(c == '-' || c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			return workoutCollectionPrefix + "x" + hex.EncodeToString([]byte(userID))
		}
	}
	return workoutCollectionPrefix + userID
}

func (r *mongoLedgerRepository) collection(ctx context.Context, userID string) *mongo.Collection {
	coll := r.db.Collection(CollectionName(userID))
	if _, seen := r.indexed.LoadOrStore(coll.Name(), struct{}{}); !seen {
		EnsureWorkoutIndexes(ctx, coll)
	}
	return coll
}

// FetchAll returns every workout of the user, newest first.
func (r *mongoLedgerRepository) FetchAll(ctx context.Context, userID string) ([]domain.WorkoutRecord, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection(ctx, userID).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	workouts := []domain.WorkoutRecord{}
	if err = cursor.All(ctx, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// Put upserts a single workout document keyed by its id.
func (r *mongoLedgerRepository) Put(ctx context.Context, userID string, record domain.WorkoutRecord) error {
	if err := repository.ValidateRecord(record); err != nil {
		return err
	}
	filter := bson.M{"_id": record.ID}
	_, err := r.collection(ctx, userID).ReplaceOne(ctx, filter, record, options.Replace().SetUpsert(true))
	return err
}

// Delete removes a workout document. A missing document is not an error.
func (r *mongoLedgerRepository) Delete(ctx context.Context, userID, id string) error {
	_, err := r.collection(ctx, userID).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// PutBatch upserts all encodable records in one unordered bulk write.
func (r *mongoLedgerRepository) PutBatch(ctx context.Context, userID string, records []domain.WorkoutRecord) (int, error) {
	models := buildBatchModels(userID, records)
	if len(models) == 0 {
		return 0, nil
	}
	_, err := r.collection(ctx, userID).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return len(models), nil
}

// buildBatchModels encodes each record up front so one bad record only
// drops itself from the batch.
func buildBatchModels(userID string, records []domain.WorkoutRecord) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		if err := repository.ValidateRecord(rec); err != nil {
			log.Printf("WARN: Skipping workout %q in batch for user %s: %v", rec.ID, userID, err)
			continue
		}
		doc, err := bson.Marshal(rec)
		if err != nil {
			log.Printf("WARN: Skipping workout %q in batch for user %s: %v", rec.ID, userID, err)
			continue
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": rec.ID}).
			SetReplacement(bson.Raw(doc)).
			SetUpsert(true))
	}
	return models
}

// Subscribe opens a change stream on the user's collection. The full ordered
// collection is delivered once the stream is open and after every change
// event. If the stream breaks, onError is called and the stream is reopened
// with backoff until the subscription is canceled. Change streams need a
// replica set; on a standalone server the first Watch fails and that error
// is returned.
func (r *mongoLedgerRepository) Subscribe(ctx context.Context, userID string, onSnapshot func([]domain.WorkoutRecord), onError func(error)) (repository.Subscription, error) {
	coll := r.collection(ctx, userID)
	stream, err := coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &changeSubscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		delay := resubscribeMinDelay
		for {
			err := r.follow(subCtx, userID, stream, onSnapshot)
			_ = stream.Close(context.Background())
			if subCtx.Err() != nil {
				return
			}
			if err != nil {
				onError(err)
			}
			for {
				if waitWithContext(subCtx, delay) != nil {
					return
				}
				delay = min(delay*2, resubscribeMaxDelay)
				stream, err = coll.Watch(subCtx, mongo.Pipeline{})
				if err == nil {
					break
				}
				if subCtx.Err() != nil {
					return
				}
				onError(err)
			}
			delay = resubscribeMinDelay
		}
	}()
	return sub, nil
}

// follow delivers the initial snapshot and then one per change event until
// the stream ends.
func (r *mongoLedgerRepository) follow(ctx context.Context, userID string, stream *mongo.ChangeStream, onSnapshot func([]domain.WorkoutRecord)) error {
	deliver := func() error {
		workouts, err := r.FetchAll(ctx, userID)
		if err != nil {
			return err
		}
		onSnapshot(workouts)
		return nil
	}
	if err := deliver(); err != nil {
		return err
	}
	for stream.Next(ctx) {
		if err := deliver(); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type changeSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *changeSubscription) Cancel() {
	s.cancel()
	<-s.done
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EnsureWorkoutIndexes creates the date index used for ordered fetches.
func EnsureWorkoutIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
