// Package storage persists records as JSON documents grouped in collections.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"sismobi/internal/core"
)

// Collection names. They double as API path segments.
const (
	Properties   = "properties"
	Tenants      = "tenants"
	Transactions = "transactions"
	Alerts       = "alerts"
	EnergyBills  = "energy-bills"
	WaterBills   = "water-bills"
	Documents    = "documents"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrUnknownCollection = errors.New("unknown collection")
)

// Collections lists every known collection.
func Collections() []string {
	return []string{Properties, Tenants, Transactions, Alerts, EnergyBills, WaterBills, Documents}
}

// ValidCollection reports whether name is a known collection.
func ValidCollection(name string) bool {
	for _, c := range Collections() {
		if c == name {
			return true
		}
	}
	return false
}

// Document is one stored JSON value.
type Document struct {
	ID   string
	Body json.RawMessage
}

// Store is a durable key-value store with JSON values.
// List returns documents in insertion order.
type Store interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Put(ctx context.Context, collection string, docs ...Document) error
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// ListAs decodes every document of a collection into T. Documents that are
// not valid JSON objects are skipped and counted.
func ListAs[T any](ctx context.Context, s Store, collection string) ([]T, int, error) {
	docs, err := s.List(ctx, collection)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", collection, err)
	}
	out := make([]T, 0, len(docs))
	skipped := 0
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Body, &v); err != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped, nil
}

// PutAs encodes values and stores them under the ids returned by id.
func PutAs[T any](ctx context.Context, s Store, collection string, id func(T) string, values ...T) error {
	if len(values) == 0 {
		return nil
	}
	docs := make([]Document, 0, len(values))
	for _, v := range values {
		body, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", collection, id(v), err)
		}
		docs = append(docs, Document{ID: id(v), Body: body})
	}
	return s.Put(ctx, collection, docs...)
}

// LoadWorld reads every collection the engine needs in parallel.
func LoadWorld(ctx context.Context, s Store) (core.World, core.Diagnostics, error) {
	var w core.World
	var skipProps, skipTenants, skipTxs, skipE, skipW int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		w.Properties, skipProps, err = ListAs[core.Property](gctx, s, Properties)
		return err
	})
	g.Go(func() (err error) {
		w.Tenants, skipTenants, err = ListAs[core.Tenant](gctx, s, Tenants)
		return err
	})
	g.Go(func() (err error) {
		w.Transactions, skipTxs, err = ListAs[core.Transaction](gctx, s, Transactions)
		return err
	})
	g.Go(func() (err error) {
		w.EnergyBills, skipE, err = ListAs[core.EnergyBill](gctx, s, EnergyBills)
		return err
	})
	g.Go(func() (err error) {
		w.WaterBills, skipW, err = ListAs[core.WaterBill](gctx, s, WaterBills)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.World{}, core.Diagnostics{}, err
	}

	for i := range w.EnergyBills {
		w.EnergyBills[i].Kind = core.EnergyBillKind
	}
	for i := range w.WaterBills {
		w.WaterBills[i].Kind = core.WaterBillKind
	}

	diag := core.Diagnostics{SkippedRecords: skipProps + skipTenants + skipTxs + skipE + skipW}
	return w, diag, nil
}

// LoadAlerts reads the persisted alerts.
func LoadAlerts(ctx context.Context, s Store) ([]core.Alert, error) {
	alerts, _, err := ListAs[core.Alert](ctx, s, Alerts)
	return alerts, err
}
