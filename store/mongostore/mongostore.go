// Package mongostore implements store.Store on MongoDB. Each event is a single
// document keyed by its id; a version field guards optimistic transactions.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"potluck/db"
	"potluck/models"
	"potluck/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	client  *mongo.Client
	events  *mongo.Collection
	presets *mongo.Collection
	users   *mongo.Collection
}

// New connects, creates indexes and returns a ready store.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := db.Connect(ctx, uri)
	if err != nil {
		return nil, err
	}
	mdb := client.Database(database)
	if err := db.CreateIndexes(ctx, mdb); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Store{
		client:  client,
		events:  mdb.Collection(db.EventsCollection),
		presets: mdb.Collection(db.PresetsCollection),
		users:   mdb.Collection(db.UsersCollection),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// --- events ---------------------------------------------------------------

func (s *Store) CreateEvent(ctx context.Context, ev *models.Event) error {
	ev.Normalize()
	if _, err := s.events.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	ev, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if repaired := ev.Normalize(); len(repaired) > 0 {
		s.repair(ctx, eventID, repaired)
	}
	return ev, nil
}

func (s *Store) findEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var ev models.Event
	err := s.events.FindOne(ctx, bson.M{"_id": eventID}).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &ev, nil
}

// repair writes empty maps for fields a partial record is missing. Matching
// on null keeps it idempotent under concurrent readers.
func (s *Store) repair(ctx context.Context, eventID string, fields []string) {
	for _, field := range fields {
		_, err := s.events.UpdateOne(ctx,
			bson.M{"_id": eventID, field: nil},
			bson.M{"$set": bson.M{field: bson.M{}}},
		)
		if err != nil {
			slog.Warn("Structural repair failed", "event_id", eventID, "field", field, "error", err)
		}
	}
}

func (s *Store) EventsByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	return s.findEvents(ctx, bson.M{"organizerId": organizerID})
}

func (s *Store) AllEvents(ctx context.Context) ([]models.Event, error) {
	return s.findEvents(ctx, bson.M{})
}

func (s *Store) findEvents(ctx context.Context, filter bson.M) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]models.Event, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	for i := range events {
		events[i].Normalize()
	}
	return events, nil
}

func (s *Store) DeleteEvent(ctx context.Context, eventID string) error {
	res, err := s.events.DeleteOne(ctx, bson.M{"_id": eventID})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrEventNotFound
	}
	return nil
}

func updateDoc(p store.Patch) bson.M {
	update := bson.M{"$inc": bson.M{"version": 1}}
	if len(p.Set) > 0 {
		set := bson.M{}
		for k, v := range p.Set {
			set[k] = v
		}
		update["$set"] = set
	}
	if len(p.Unset) > 0 {
		unset := bson.M{}
		for _, k := range p.Unset {
			unset[k] = ""
		}
		update["$unset"] = unset
	}
	return update
}

func (s *Store) UpdatePaths(ctx context.Context, eventID string, p store.Patch) error {
	res, err := s.events.UpdateOne(ctx, bson.M{"_id": eventID}, updateDoc(p))
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrEventNotFound
	}
	return nil
}

// versionFilter matches the document only if nobody wrote it since read.
// Records written before versioning have no field; null matches those.
func versionFilter(eventID string, read int64) bson.M {
	if read == 0 {
		return bson.M{"_id": eventID, "version": bson.M{"$in": bson.A{int64(0), int32(0), nil}}}
	}
	return bson.M{"_id": eventID, "version": read}
}

func (s *Store) Transact(ctx context.Context, eventID string, fn store.TxFunc) (*models.Event, error) {
	for attempt := 1; attempt <= store.MaxTxAttempts; attempt++ {
		ev, err := s.findEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		ev.Normalize()
		read := ev.Version

		if err := fn(ev); err != nil {
			return nil, err
		}

		ev.Version = read + 1
		res, err := s.events.ReplaceOne(ctx, versionFilter(eventID, read), ev)
		if err != nil {
			return nil, fmt.Errorf("commit transaction: %w", err)
		}
		if res.MatchedCount == 1 {
			return ev, nil
		}
		slog.Debug("Transaction conflict, retrying", "event_id", eventID, "attempt", attempt)
	}
	return nil, models.ErrTxConflict
}

func (s *Store) BulkUpdate(ctx context.Context, patches []store.EventPatch) error {
	writes := make([]mongo.WriteModel, 0, len(patches))
	for _, p := range patches {
		if p.Delete {
			writes = append(writes, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": p.EventID}))
			continue
		}
		if p.Patch.Empty() {
			continue
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": p.EventID}).
			SetUpdate(updateDoc(p.Patch)))
	}
	if len(writes) == 0 {
		return nil
	}
	if _, err := s.events.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("bulk update events: %w", err)
	}
	return nil
}

// --- presets --------------------------------------------------------------

func (s *Store) PresetListsByOwner(ctx context.Context, ownerID string) ([]models.PresetList, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.presets.Find(ctx, bson.M{"createdBy": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find preset lists: %w", err)
	}
	defer cursor.Close(ctx)

	lists := make([]models.PresetList, 0)
	if err := cursor.All(ctx, &lists); err != nil {
		return nil, fmt.Errorf("decode preset lists: %w", err)
	}
	return lists, nil
}

func (s *Store) GetPresetList(ctx context.Context, id string) (*models.PresetList, error) {
	var list models.PresetList
	err := s.presets.FindOne(ctx, bson.M{"_id": id}).Decode(&list)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrPresetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find preset list: %w", err)
	}
	return &list, nil
}

func (s *Store) SavePresetList(ctx context.Context, list *models.PresetList) error {
	_, err := s.presets.ReplaceOne(ctx, bson.M{"_id": list.ID}, list, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save preset list: %w", err)
	}
	return nil
}

func (s *Store) DeletePresetList(ctx context.Context, id string) error {
	res, err := s.presets.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete preset list: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrPresetNotFound
	}
	return nil
}

// --- users ----------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u *models.UserProfile) error {
	u.Email = strings.ToLower(u.Email)
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(email)})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.UserProfile, error) {
	var u models.UserProfile
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
