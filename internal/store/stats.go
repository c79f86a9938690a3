// Package store encapsulates MongoDB client management and collection helpers.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type countCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// StatsProvider exposes helper methods to retrieve bot counts for basic
// diagnostics without leaking MongoDB internals to callers.
type StatsProvider struct {
	bots countCollection
}

// NewStatsProvider constructs a StatsProvider backed by the bots collection.
func NewStatsProvider(bots countCollection) *StatsProvider {
	return &StatsProvider{bots: bots}
}

// CountBots returns the number of registered bot records.
func (p *StatsProvider) CountBots(ctx context.Context) (int64, error) {
	return p.count(ctx, bson.D{})
}

// CountApproved returns the number of bots the operator has approved.
func (p *StatsProvider) CountApproved(ctx context.Context) (int64, error) {
	return p.count(ctx, bson.D{{Key: "approved", Value: true}})
}

// CountAwaitingApproval returns the number of registered but unapproved bots.
func (p *StatsProvider) CountAwaitingApproval(ctx context.Context) (int64, error) {
	return p.count(ctx, bson.D{{Key: "approved", Value: false}})
}

func (p *StatsProvider) count(ctx context.Context, filter bson.D) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.bots == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.bots.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count bots: %w", err)
	}

	return count, nil
}
