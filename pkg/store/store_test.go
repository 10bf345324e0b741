// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"testing"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession() *SessionValue {
	return &SessionValue{Alive: true, Operations: make(map[string]Operation)}
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore(logging.GetLogger("opcgw", "store", "test"))
	key := Key{SessionID: "1"}

	_, err := s.Get(ctx, key)
	assert.True(t, errors.IsNotFound(err))

	_, err = s.Put(ctx, key, newSession())
	require.NoError(t, err)
	_, err = s.Put(ctx, key, newSession())
	assert.True(t, errors.IsAlreadyExists(err))

	require.NoError(t, s.RecordOperation(ctx, key, "101", Operation{Name: "get", Status: true}))
	entry, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "get", entry.Value.Operations["101"].Name)

	closed := entry.Value.Clone()
	closed.Alive = false
	_, err = s.Update(ctx, key, closed)
	require.NoError(t, err)
	entry, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, entry.Value.Alive)
	assert.Len(t, entry.Value.Operations, 1)

	_, err = s.Update(ctx, Key{SessionID: "2"}, newSession())
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(s.RecordOperation(ctx, Key{SessionID: "2"}, "1", Operation{})))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.True(t, errors.IsNotFound(err))
}

func TestEntries(t *testing.T) {
	ctx := context.Background()
	s := NewStore(logging.GetLogger("opcgw", "store", "test"))
	for _, id := range []string{"1", "2", "3"} {
		_, err := s.Put(ctx, Key{SessionID: id}, newSession())
		require.NoError(t, err)
	}

	ch := make(chan *Entry)
	done := make(chan map[string]bool)
	go func() {
		seen := make(map[string]bool)
		for entry := range ch {
			seen[entry.Key.SessionID] = true
		}
		done <- seen
	}()
	require.NoError(t, s.Entries(ctx, ch))
	assert.Equal(t, map[string]bool{"1": true, "2": true, "3": true}, <-done)
}

func TestWatch(t *testing.T) {
	s := NewStore(logging.GetLogger("opcgw", "store", "test"))
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan Event)
	require.NoError(t, s.Watch(ctx, ch))

	key := Key{SessionID: "7"}
	_, err := s.Put(context.Background(), key, newSession())
	require.NoError(t, err)
	require.NoError(t, s.RecordOperation(context.Background(), key, "1", Operation{Name: "edit-config"}))
	require.NoError(t, s.Delete(context.Background(), key))

	for _, want := range []EventType{Created, Updated, Deleted} {
		select {
		case event := <-ch:
			assert.Equal(t, want, event.Type)
			assert.Equal(t, key, event.Key)
		case <-time.After(time.Second):
			t.Fatalf("no %s event", want)
		}
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed")
	}
}
