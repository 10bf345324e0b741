// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"sync"

	"github.com/google/uuid"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
)

// Watchers fans store events out to the registered channels
type Watchers struct {
	watchers map[uuid.UUID]chan<- Event
	mu       sync.RWMutex
	log      logging.Logger
}

func NewWatchers(log logging.Logger) *Watchers {
	return &Watchers{
		watchers: make(map[uuid.UUID]chan<- Event),
		log:      log,
	}
}

// Send delivers event to every watcher; a watcher that is not ready misses it
func (ws *Watchers) Send(event Event) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	for id, ch := range ws.watchers {
		select {
		case ch <- event:
		default:
			ws.log.Warnf("Watcher %s is not ready, %s event for %s dropped", id, event.Type, event.Key.SessionID)
		}
	}
}

func (ws *Watchers) AddWatcher(id uuid.UUID, ch chan<- Event) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if _, ok := ws.watchers[id]; ok {
		return errors.NewAlreadyExists("watcher %s already exists", id)
	}
	ws.watchers[id] = ch
	return nil
}

func (ws *Watchers) RemoveWatcher(id uuid.UUID) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if _, ok := ws.watchers[id]; !ok {
		return errors.NewNotFound("watcher %s not found", id)
	}
	delete(ws.watchers, id)
	return nil
}
