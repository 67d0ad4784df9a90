// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	r := New()

	err := r.Register(&StockCheckClient{ID: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	err = r.Register(&StockCheckClient{ID: "a"})
	assert.ErrorIs(t, err, ErrDuplicateClient)
	assert.Equal(t, 1, r.Len())
}

func TestGet_StockCheck(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&StockCheckClient{ID: "a"}))

	c, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", c.ClientID())

	// Stock-check entries have no redemption guard; repeated lookups succeed.
	_, err = r.Get("a")
	assert.NoError(t, err)
}

func TestGet_UnknownClient(t *testing.T) {
	r := New()

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownClient)
	assert.EqualError(t, err, "Unknown client request")
}

func TestGet_ReservationSingleRedemption(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&ReservationClient{ID: "a", Status: StatusInitialized}))

	c, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, c.(*ReservationClient).Status)

	_, err = r.Get("a")
	assert.ErrorIs(t, err, ErrAlreadyProcessing)
	assert.EqualError(t, err, "Request is already under processing")
}

func TestGet_ConcurrentRedemption(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&ReservationClient{ID: "a", Status: StatusInitialized}))

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Get("a")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch err {
		case nil:
			succeeded++
		case ErrAlreadyProcessing:
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one redemption must win")
	assert.Equal(t, attempts-1, rejected)
}

func TestRemove_Idempotent(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&StockCheckClient{ID: "a"}))

	r.Remove("a")
	assert.Equal(t, 0, r.Len())

	// Completion and disconnect may both fire; the second removal is a no-op.
	r.Remove("a")
	assert.Equal(t, 0, r.Len())
}
