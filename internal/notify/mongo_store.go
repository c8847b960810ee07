// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tomtom215/storefront/internal/metrics"
)

const CollectionName = "notifications"

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "isRead", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", CollectionName, err)
	}
	return nil
}

func (s *MongoStore) Insert(ctx context.Context, n *Notification) (err error) {
	defer observe("insert", time.Now(), &err)
	if _, err = s.coll.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (s *MongoStore) List(ctx context.Context, recipient string, unreadOnly bool, page, pageSize int) (_ []Notification, _ int64, err error) {
	defer observe("list", time.Now(), &err)

	filter := bson.M{"recipient": recipient}
	if unreadOnly {
		filter["isRead"] = false
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	out := make([]Notification, 0, pageSize)
	if err = cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return out, total, nil
}

func (s *MongoStore) UnreadCount(ctx context.Context, recipient string) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"recipient": recipient, "isRead": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func (s *MongoStore) MarkRead(ctx context.Context, id string, at time.Time) (err error) {
	defer observe("mark_read", time.Now(), &err)
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at}})
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) MarkAllRead(ctx context.Context, recipient string, at time.Time) (_ int64, err error) {
	defer observe("mark_all_read", time.Now(), &err)
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"recipient": recipient, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) (err error) {
	defer observe("delete", time.Now(), &err)
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func observe(op string, start time.Time, err *error) {
	var e error
	if err != nil && !errors.Is(*err, ErrNotFound) {
		e = *err
	}
	metrics.RecordStoreOperation("mongo_notifications", op, time.Since(start), e)
}
