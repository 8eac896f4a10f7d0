package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Novip1906/todo-api/internal/models"
)

type MongoStorage struct {
	client *mongo.Client
	coll   *mongo.Collection
	log    *slog.Logger
}

type taskDocument struct {
	Id        primitive.ObjectID `bson:"_id,omitempty"`
	Task      string             `bson:"task"`
	Completed bool               `bson:"completed"`
	UserId    string             `bson:"userId"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *taskDocument) toModel() *models.Task {
	return &models.Task{
		Id:        d.Id.Hex(),
		OwnerId:   d.UserId,
		Text:      d.Task,
		Completed: d.Completed,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func NewMongoStorage(ctx context.Context, uri, database, collection string, log *slog.Logger) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot open mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("cannot connect to mongo: %w", err)
	}

	s := &MongoStorage{
		client: client,
		coll:   client.Database(database).Collection(collection),
		log:    log,
	}

	if err := s.init(ctx); err != nil {
		return nil, fmt.Errorf("cannot initialize mongo indexes: %w", err)
	}

	log.Info("connected to mongo", slog.String("database", database), slog.String("collection", collection))
	return s, nil
}

func (s *MongoStorage) init(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "completed", Value: 1}},
	})
	return err
}

func (s *MongoStorage) CreateTask(ctx context.Context, ownerId, text string) (*models.Task, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := taskDocument{
		Id:        primitive.NewObjectID(),
		Task:      text,
		Completed: false,
		UserId:    ownerId,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *MongoStorage) ListTasks(ctx context.Context, ownerId string, completed *bool) ([]*models.Task, error) {
	filter := bson.M{"userId": ownerId}
	if completed != nil {
		filter["completed"] = *completed
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	tasks := make([]*models.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, docs[i].toModel())
	}
	return tasks, nil
}

// UpdateTask applies upd to the task matching both id and owner in one
// findOneAndUpdate and returns the new state together with the previous text.
func (s *MongoStorage) UpdateTask(ctx context.Context, ownerId, taskId string, upd models.TaskUpdate) (*models.Task, string, error) {
	oid, err := primitive.ObjectIDFromHex(taskId)
	if err != nil {
		return nil, "", ErrTaskNotFound
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{"$set": bson.M{
		"task":      upd.Text,
		"completed": upd.Completed,
		"updatedAt": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before taskDocument
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid, "userId": ownerId}, update, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, "", ErrTaskNotFound
	}
	if err != nil {
		return nil, "", err
	}

	after := before
	after.Task = upd.Text
	after.Completed = upd.Completed
	after.UpdatedAt = now
	return after.toModel(), before.Task, nil
}

func (s *MongoStorage) DeleteTask(ctx context.Context, ownerId, taskId string) (*models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(taskId)
	if err != nil {
		return nil, ErrTaskNotFound
	}

	var doc taskDocument
	err = s.coll.FindOneAndDelete(ctx, bson.M{"_id": oid, "userId": ownerId}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *MongoStorage) DeleteAllTasks(ctx context.Context, ownerId string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"userId": ownerId})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStorage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
