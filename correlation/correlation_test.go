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

package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDoEndFiresImmediatelyWithNoPendingRequests(t *testing.T) {
	s := NewOutputEstablishedState(1, "target-a")
	fired := false

	s.DoEnd(func() { fired = true })

	assert.True(t, fired)
	assert.False(t, s.EndRequested())
}

func TestDoEndDefersUntilPendingRequestsDrain(t *testing.T) {
	s := NewOutputEstablishedState(1, "target-a")
	s.BeginRequest()
	fired := false

	s.DoEnd(func() { fired = true })
	assert.False(t, fired)
	assert.True(t, s.EndRequested())

	shouldEnd := s.EndRequest()
	assert.True(t, shouldEnd)
	assert.Equal(t, 0, s.PendingRequests())
}

func TestEndRequestReturnsFalseWhileRequestsRemain(t *testing.T) {
	s := NewOutputEstablishedState(1, "target-a")
	s.BeginRequest()
	s.BeginRequest()

	assert.False(t, s.EndRequest())
	assert.Equal(t, 1, s.PendingRequests())
}

func TestRegistryCorrelateResolveRemove(t *testing.T) {
	r := NewRegistry[*OutputEstablishedState]()
	c := New(true, OutputEstablished, NewOutputEstablishedState(42, "a"))

	r.CorrelateNew(7, c)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Resolve(7)
	assert.True(t, ok)
	assert.Same(t, c, got)

	r.Remove(7)
	_, ok = r.Resolve(7)
	assert.False(t, ok)
}

func TestNewAssignsDistinctCorrelationIDs(t *testing.T) {
	a := New(true, OutputEstablished, NewOutputEstablishedState(1, "a"))
	b := New(true, OutputEstablished, NewOutputEstablishedState(1, "a"))
	assert.NotEqual(t, a.SourceCorrelationID, b.SourceCorrelationID)
}
