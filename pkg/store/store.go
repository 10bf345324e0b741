// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package store keeps the NETCONF sessions of the northbound SSH server.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
)

const watchBufferSize = 64

type Store interface {
	// Put puts the entry to the local store
	Put(ctx context.Context, key Key, value *SessionValue) (*Entry, error)

	// Get gets the entry from the local store
	Get(ctx context.Context, key Key) (*Entry, error)

	// Update updates the entry to the local store
	Update(ctx context.Context, key Key, value *SessionValue) (*Entry, error)

	// RecordOperation adds an operation to a session under messageID
	RecordOperation(ctx context.Context, key Key, messageID string, op Operation) error

	// Delete deletes the entry from the local store
	Delete(ctx context.Context, key Key) error

	// Entries streams the entries from the local store through ch and closes it
	Entries(ctx context.Context, ch chan<- *Entry) error

	// Watch sends the events of this local store to ch until ctx is done
	Watch(ctx context.Context, ch chan<- Event) error
}

func NewStore(log logging.Logger) Store {
	return &store{
		localStore: make(map[Key]*Entry),
		watchers:   NewWatchers(log),
		log:        log,
	}
}

type store struct {
	localStore map[Key]*Entry
	mu         sync.RWMutex
	watchers   *Watchers
	log        logging.Logger
}

func (s *store) Put(ctx context.Context, key Key, value *SessionValue) (*Entry, error) {
	s.log.Debugf("Creating store key %v", key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.localStore[key]; ok {
		return nil, errors.NewAlreadyExists("session %s already exists", key.SessionID)
	}
	entry := &Entry{
		Key:   key,
		Value: value.Clone(),
	}
	s.localStore[key] = entry
	s.watchers.Send(Event{
		Key:   key,
		Value: entry,
		Type:  Created,
	})
	return entry, nil
}

func (s *store) Update(ctx context.Context, key Key, value *SessionValue) (*Entry, error) {
	s.log.Debugf("Updating store key %v", key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.localStore[key]; !ok {
		return nil, errors.NewNotFound("session %s does not exist", key.SessionID)
	}
	return s.update(key, value.Clone()), nil
}

// update must be called with mu held
func (s *store) update(key Key, value *SessionValue) *Entry {
	entry := &Entry{
		Key:   key,
		Value: value,
	}
	s.localStore[key] = entry
	s.watchers.Send(Event{
		Key:   key,
		Value: entry,
		Type:  Updated,
	})
	return entry
}

func (s *store) RecordOperation(ctx context.Context, key Key, messageID string, op Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.localStore[key]
	if !ok {
		return errors.NewNotFound("session %s does not exist", key.SessionID)
	}
	value := entry.Value.Clone()
	value.Operations[messageID] = op
	s.update(key, value)
	return nil
}

func (s *store) Get(ctx context.Context, key Key) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.localStore[key]; ok {
		return v, nil
	}
	return nil, errors.NewNotFound("session %s does not exist", key.SessionID)
}

func (s *store) Delete(ctx context.Context, key Key) error {
	s.log.Debugf("Deleting store key %v", key)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.localStore[key]
	if !ok {
		return nil
	}
	delete(s.localStore, key)
	s.watchers.Send(Event{
		Key:   key,
		Value: entry,
		Type:  Deleted,
	})
	return nil
}

func (s *store) Entries(ctx context.Context, ch chan<- *Entry) error {
	s.mu.RLock()
	entries := make([]*Entry, 0, len(s.localStore))
	for _, entry := range s.localStore {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	defer close(ch)
	for _, entry := range entries {
		select {
		case ch <- entry:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *store) Watch(ctx context.Context, ch chan<- Event) error {
	id := uuid.New()
	events := make(chan Event, watchBufferSize)
	if err := s.watchers.AddWatcher(id, events); err != nil {
		s.log.Error(err)
		close(ch)
		return err
	}

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				if err := s.watchers.RemoveWatcher(id); err != nil {
					s.log.Error(err)
				}
				return
			case event := <-events:
				select {
				case ch <- event:
				case <-ctx.Done():
				}
			}
		}
	}()
	return nil
}

var _ Store = &store{}
