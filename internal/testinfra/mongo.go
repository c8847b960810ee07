// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultMongoImage = "mongo:7.0"
	mongoPort         = "27017/tcp"
)

// MongoContainer is a running single-node MongoDB.
type MongoContainer struct {
	testcontainers.Container
	URI string
}

type MongoOption func(*mongoConfig)

type mongoConfig struct {
	image        string
	startTimeout time.Duration
}

func WithMongoImage(image string) MongoOption {
	return func(c *mongoConfig) { c.image = image }
}

func WithMongoStartTimeout(d time.Duration) MongoOption {
	return func(c *mongoConfig) { c.startTimeout = d }
}

// NewMongoContainer starts MongoDB and waits until it accepts connections.
func NewMongoContainer(ctx context.Context, opts ...MongoOption) (*MongoContainer, error) {
	cfg := &mongoConfig{image: DefaultMongoImage, startTimeout: 60 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{mongoPort},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(mongoPort),
			wait.ForLog("Waiting for connections"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start mongo container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := c.MappedPort(ctx, mongoPort)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	return &MongoContainer{
		Container: c,
		URI:       fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
	}, nil
}

// StartMongo is the test helper form: it skips without Docker and registers
// cleanup on t.
func StartMongo(t *testing.T) *MongoContainer {
	t.Helper()
	SkipIfNoDocker(t)

	ctx := context.Background()
	mc, err := NewMongoContainer(ctx)
	if err != nil {
		t.Fatalf("NewMongoContainer() error = %v", err)
	}
	t.Cleanup(func() { CleanupContainer(t, ctx, mc) })
	return mc
}
