// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tomtom215/storefront/internal/metrics"
)

// CollectionName is the MongoDB collection holding admin log records.
const CollectionName = "adminlogs"

// MongoStore persists records in MongoDB, the production backend.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

// mongoRecord adds the numeric severity used for range filters and sorting.
type mongoRecord struct {
	Record       `bson:",inline"`
	SeverityRank int `bson:"severityRank"`
}

var mongoSortFields = map[string]string{
	SortTimestamp: "timestamp",
	SortAction:    "action",
	SortEntity:    "entity",
	SortActorName: "actorName",
	SortSeverity:  "severityRank",
}

// EnsureIndexes creates the indexes backing the list and stats queries.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "actorId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "action", Value: 1}}},
		{Keys: bson.D{{Key: "entity", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", CollectionName, err)
	}
	return nil
}

func (s *MongoStore) Append(ctx context.Context, rec *Record) (err error) {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	defer observeMongo("append", time.Now(), &err)

	doc := mongoRecord{Record: *rec, SeverityRank: rec.Severity.Rank()}
	if doc.Severity == "" {
		doc.Severity = SeverityInfo
	}
	if _, err = s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert admin log: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Record, error) {
	var doc mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get admin log: %w", err)
	}
	rec := doc.Record
	rec.Timestamp = rec.Timestamp.UTC()
	return &rec, nil
}

func (s *MongoStore) Query(ctx context.Context, filter Filter, page PageRequest) (_ *Page, err error) {
	defer observeMongo("query", time.Now(), &err)
	page = page.normalize()
	match := mongoFilter(&filter)

	total, err := s.coll.CountDocuments(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("failed to count admin logs: %w", err)
	}

	dir := -1
	if page.SortAsc {
		dir = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: mongoSortFields[page.SortBy], Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(int64(page.offset())).
		SetLimit(int64(page.PageSize))

	cur, err := s.coll.Find(ctx, match, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin logs: %w", err)
	}
	var docs []mongoRecord
	if err = cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode admin logs: %w", err)
	}

	records := make([]Record, len(docs))
	for i := range docs {
		records[i] = docs[i].Record
		records[i].Timestamp = records[i].Timestamp.UTC()
	}
	return newPage(records, total, page), nil
}

func (s *MongoStore) AggregateByDimension(ctx context.Context, dim Dimension, filter Filter) ([]Bucket, error) {
	if !dim.Valid() {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: mongoFilter(&filter)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + string(dim), ""}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate admin logs by %s: %w", dim, err)
	}
	var rows []struct {
		Key   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s buckets: %w", dim, err)
	}

	out := make([]Bucket, len(rows))
	for i, r := range rows {
		out[i] = Bucket{Key: r.Key, Count: r.Count}
	}
	return out, nil
}

func (s *MongoStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge admin logs: %w", err)
	}
	return res.DeletedCount, nil
}

// mongoFilter builds the match document. Only fixed field names are used;
// user input only ever appears as values.
func mongoFilter(f *Filter) bson.M {
	m := bson.M{}

	ts := bson.M{}
	if f.StartTime != nil {
		ts["$gte"] = *f.StartTime
	}
	if f.EndTime != nil {
		ts["$lte"] = *f.EndTime
	}
	if len(ts) > 0 {
		m["timestamp"] = ts
	}

	if f.ActorID != "" {
		m["actorId"] = f.ActorID
	}
	if f.Action != "" {
		m["action"] = f.Action
	}
	if f.Entity != "" {
		m["entity"] = f.Entity
	}
	if f.MinSeverity != "" {
		m["severityRank"] = bson.M{"$gte": f.MinSeverity.Rank()}
	}
	if f.Search != "" {
		pattern := regexp.QuoteMeta(f.Search)
		m["$or"] = bson.A{
			bson.M{"actorName": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"actorEmail": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return m
}

func observeMongo(op string, start time.Time, err *error) {
	metrics.RecordStoreOperation("mongo", op, time.Since(start), *err)
}
