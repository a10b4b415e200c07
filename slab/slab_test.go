// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	s := New(16, 2)
	assert.Equal(t, 16, s.Capacity())

	a := s.Acquire(1)
	b := s.Acquire(2)
	require.NotEqual(t, NoSlot, a)
	require.NotEqual(t, NoSlot, b)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.InUse())

	assert.Equal(t, NoSlot, s.Acquire(3))

	s.Release(a)
	assert.Equal(t, 1, s.InUse())

	c := s.Acquire(4)
	assert.NotEqual(t, NoSlot, c)
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := New(8, 1)
	a := s.Acquire(1)
	s.Release(a)
	assert.NotPanics(t, func() { s.Release(a) })
	assert.Equal(t, 0, s.InUse())
}

func TestReleaseNoSlotIsNoop(t *testing.T) {
	s := New(8, 1)
	assert.NotPanics(t, func() { s.Release(NoSlot) })
}

func TestBufferReturnsFixedCapacityRegion(t *testing.T) {
	s := New(4, 1)
	slot := s.Acquire(1)
	buf := s.Buffer(slot)
	assert.Len(t, buf, 4)
	assert.Nil(t, s.Buffer(NoSlot))
}
