// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package events

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
)

// defaultEventTTL is how long buffered events survive. An exchange is
// capped at a handful of iterations, so anything older is garbage.
const defaultEventTTL = 10 * time.Minute

// ReplayConfig configures the replay buffer's Badger store.
type ReplayConfig struct {
	// Path is the on-disk location of the store. Ignored when InMemory
	// is set.
	Path string

	// InMemory keeps the store entirely in memory. Used in tests and
	// in deployments that do not need replay across restarts.
	InMemory bool

	// TTL overrides the default event lifetime when positive.
	TTL time.Duration
}

// ReplayBuffer persists published exchange events for a short window
// so late subscribers can catch up.
//
// # Thread Safety
//
// Safe for concurrent use.
type ReplayBuffer struct {
	db  *badger.DB
	ttl time.Duration
	seq atomic.Uint64
}

// NewReplayBuffer opens the underlying Badger store.
func NewReplayBuffer(cfg ReplayConfig) (*ReplayBuffer, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay buffer store: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultEventTTL
	}
	return &ReplayBuffer{db: db, ttl: ttl}, nil
}

// Close closes the underlying store.
func (r *ReplayBuffer) Close() error {
	return r.db.Close()
}

// eventKey builds a key that sorts in publish order within an exchange.
func (r *ReplayBuffer) eventKey(exchangeID string) []byte {
	return fmt.Appendf(nil, "exchange/%s/%020d", exchangeID, r.seq.Add(1))
}

func exchangePrefix(exchangeID string) []byte {
	return fmt.Appendf(nil, "exchange/%s/", exchangeID)
}

// Append stores an event with the configured TTL.
func (r *ReplayBuffer) Append(exchangeID string, event datatypes.ExchangeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange event: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(r.eventKey(exchangeID), value).WithTTL(r.ttl)
		return txn.SetEntry(entry)
	})
}

// Events returns the buffered events for an exchange in publish order.
func (r *ReplayBuffer) Events(exchangeID string) ([]datatypes.ExchangeEvent, error) {
	var events []datatypes.ExchangeEvent
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := exchangePrefix(exchangeID)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var event datatypes.ExchangeEvent
				if err := json.Unmarshal(val, &event); err != nil {
					return fmt.Errorf("failed to unmarshal exchange event: %w", err)
				}
				events = append(events, event)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
