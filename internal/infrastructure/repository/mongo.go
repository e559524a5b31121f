package repository

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/totegamma/gamecatalog/internal/domain"
	"github.com/totegamma/gamecatalog/internal/usecase"
)

// MongoStore maps each entity type to a collection of the same name.
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

func NewMongoStore(client *mongo.Client, database string, timeout time.Duration) *MongoStore {
	return &MongoStore{
		client:  client,
		db:      client.Database(database),
		timeout: timeout,
	}
}

func (s *MongoStore) Collection(name string) usecase.DocumentCollection {
	return &MongoCollection{coll: s.db.Collection(name), timeout: s.timeout}
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type MongoCollection struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// Find pushes the projection down to the server and sorts by _id, which
// follows insertion order for ObjectIDs.
func (c *MongoCollection) Find(ctx context.Context, projection domain.Projection) ([]domain.Record, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if p := mongoProjection(projection); p != nil {
		opts.SetProjection(p)
	}

	cursor, err := c.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "MongoCollection.Find")
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "MongoCollection.Find: decode")
	}

	records := make([]domain.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, fromBSON(doc))
	}
	return records, nil
}

func (c *MongoCollection) FindByID(ctx context.Context, id string) (domain.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Record{}, domain.ErrNotFound
	}
	return c.findOne(ctx, bson.D{{Key: "_id", Value: oid}}, nil, "MongoCollection.FindByID")
}

func (c *MongoCollection) FindByName(ctx context.Context, name string) (domain.Record, error) {
	filter := bson.D{{Key: "name", Value: primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(name) + "$",
		Options: "i",
	}}}
	return c.findOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}}), "MongoCollection.FindByName")
}

func (c *MongoCollection) SearchByName(ctx context.Context, fragment string) (domain.Record, error) {
	filter := bson.D{{Key: "name", Value: primitive.Regex{
		Pattern: regexp.QuoteMeta(fragment),
		Options: "i",
	}}}
	return c.findOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}}), "MongoCollection.SearchByName")
}

func (c *MongoCollection) findOne(ctx context.Context, filter bson.D, opts *options.FindOneOptions, op string) (domain.Record, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var findOpts []*options.FindOneOptions
	if opts != nil {
		findOpts = append(findOpts, opts)
	}

	var doc bson.M
	err := c.coll.FindOne(ctx, filter, findOpts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Record{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Record{}, errors.Wrap(err, op)
	}
	return fromBSON(doc), nil
}

func (c *MongoCollection) Create(ctx context.Context, fields map[string]any) (domain.Record, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	oid := primitive.NewObjectID()
	doc := bson.M{"_id": oid}
	for k, v := range fields {
		doc[k] = v
	}

	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return domain.Record{}, errors.Wrap(err, "MongoCollection.Create")
	}
	return fromBSON(doc), nil
}

func (c *MongoCollection) Update(ctx context.Context, id string, fields map[string]any) (domain.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Record{}, domain.ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bson.M
	err = c.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Record{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Record{}, errors.Wrap(err, "MongoCollection.Update")
	}
	return fromBSON(doc), nil
}

func (c *MongoCollection) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return errors.Wrap(err, "MongoCollection.Delete")
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mongoProjection(p domain.Projection) bson.D {
	var out bson.D
	if len(p.Include) > 0 {
		for _, name := range p.Include {
			out = append(out, bson.E{Key: name, Value: 1})
		}
		if !p.WithID {
			out = append(out, bson.E{Key: "_id", Value: 0})
		}
		return out
	}
	for _, name := range p.Exclude {
		out = append(out, bson.E{Key: name, Value: 0})
	}
	return out
}

func fromBSON(doc bson.M) domain.Record {
	record := domain.Record{Fields: make(map[string]any, len(doc))}
	for k, v := range doc {
		if k == domain.IDField {
			switch id := v.(type) {
			case primitive.ObjectID:
				record.ID = id.Hex()
			case string:
				record.ID = id
			}
			continue
		}
		record.Fields[k] = fromBSONValue(v)
	}
	return record
}

func fromBSONValue(v any) any {
	switch t := v.(type) {
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromBSONValue(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = fromBSONValue(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = fromBSONValue(e.Value)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	case primitive.ObjectID:
		return t.Hex()
	}
	return v
}
