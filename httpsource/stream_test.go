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

package httpsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/nukleus-http/fabric"
	"github.com/packetd/nukleus-http/route"
)

const testSourceRef = 1

func newTestFactory(t *testing.T, slotCapacity, slotCount int) (*SourceInputStreamFactory, *fakeSource, *fakeTarget, *fakeTarget) {
	t.Helper()

	routes := route.NewTable([]route.Route{
		{
			Name:      "to-a",
			SourceRef: testSourceRef,
			Matchers:  []route.HeaderMatcher{route.NewExactMatcher(":authority", "a")},
			Target:    "target-a",
			TargetRef: 100,
		},
	})

	backend := newFakeTarget()
	reject := newFakeTarget()
	src := &fakeSource{}

	f := NewFactory(src, routes, map[string]fabric.Target{
		"target-a":          backend,
		defaultRejectTarget: reject,
	}, Options{SlotCapacity: slotCapacity, SlotCount: slotCount}, nil)

	return f, src, backend, reject
}

func beginStream(t *testing.T, f *SourceInputStreamFactory, sourceID fabric.StreamID) *SourceInputStream {
	t.Helper()
	s := f.NewStream()
	require.NoError(t, s.HandleBegin(fabric.BeginFrame{StreamID: sourceID, ReferenceID: testSourceRef, CorrelationID: 99}))
	return s
}

func TestSimpleGetPipelined(t *testing.T) {
	f, _, backend, _ := newTestFactory(t, 256, 4)
	s := beginStream(t, f, 1)

	payload := []byte("GET / HTTP/1.1\r\nHost: a\r\n\r\nGET /x HTTP/1.1\r\nHost: a\r\n\r\n")
	require.NoError(t, s.HandleData(fabric.DataFrame{StreamID: 1, Payload: payload}))

	require.Len(t, backend.begins, 2)
	assert.Equal(t, "/", backend.begins[0].headers.Get(":path"))
	assert.Equal(t, "/x", backend.begins[1].headers.Get(":path"))
	assert.True(t, backend.ended[backend.begins[0].targetID])
	assert.True(t, backend.ended[backend.begins[1].targetID])
	assert.Empty(t, backend.data)
}

func TestPostContentLengthSplitAcrossFrames(t *testing.T) {
	f, src, backend, _ := newTestFactory(t, 256, 4)
	s := beginStream(t, f, 1)

	first := []byte("POST / HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\n\r\nhel")
	require.NoError(t, s.HandleData(fabric.DataFrame{StreamID: 1, Payload: first}))

	require.Len(t, backend.begins, 1)
	targetID := backend.begins[0].targetID

	require.NoError(t, backend.window(targetID, 5))

	second := []byte("lo")
	require.NoError(t, s.HandleData(fabric.DataFrame{StreamID: 1, Payload: second}))

	assert.Equal(t, "hello", string(backend.body(targetID)))
	assert.True(t, backend.ended[targetID])
	assert.GreaterOrEqual(t, src.totalWindow(), len(first)+len(second))
}

func TestHeadersLargerThanSlotReject431(t *testing.T) {
	f, src, _, reject := newTestFactory(t, 16, 2)
	s := beginStream(t, f, 1)

	huge := []byte("GET / HTTP/1.1\r\nHost: " + string(make([]byte, 64)) + "\r\n\r\n")
	_ = s.HandleData(fabric.DataFrame{StreamID: 1, Payload: huge[:16]})

	require.Len(t, reject.begins, 1)
	targetID := reject.begins[0].targetID
	require.NoError(t, reject.window(targetID, len(responseHeadersTooLarge)))
	assert.Contains(t, string(reject.body(targetID)), "431 Request Header Fields Too Large")
	assert.Equal(t, 1, src.resets)
}

func TestNoMatchingRouteReturns404(t *testing.T) {
	f, src, _, reject := newTestFactory(t, 256, 4)
	s := beginStream(t, f, 1)

	req := []byte("GET / HTTP/1.1\r\nHost: unknown\r\n\r\n")
	require.NoError(t, s.HandleData(fabric.DataFrame{StreamID: 1, Payload: req}))

	require.Len(t, reject.begins, 1)
	targetID := reject.begins[0].targetID
	require.NoError(t, reject.window(targetID, len(responseNotFound)))
	assert.Contains(t, string(reject.body(targetID)), "404 Not Found")
	assert.Equal(t, 1, src.resets)
}

func TestUpgradePropagatesWindowOneToOne(t *testing.T) {
	f, src, backend, _ := newTestFactory(t, 256, 4)
	s := beginStream(t, f, 1)

	req := []byte("GET / HTTP/1.1\r\nHost: a\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\nRAWBYTES")
	require.NoError(t, s.HandleData(fabric.DataFrame{StreamID: 1, Payload: req}))

	require.Len(t, backend.begins, 1)
	targetID := backend.begins[0].targetID
	assert.Equal(t, "websocket", backend.begins[0].headers.Get("upgrade"))

	require.NoError(t, backend.window(targetID, len("RAWBYTES")))
	assert.Equal(t, "RAWBYTES", string(backend.body(targetID)))
	assert.Equal(t, throttlePropagateWindow, s.throttleState)

	before := src.totalWindow()
	require.NoError(t, backend.window(targetID, 7))
	assert.Equal(t, before+7, src.totalWindow())
}

func TestFlowControlledBodyHoldsRemainderInSlot(t *testing.T) {
	f, _, backend, _ := newTestFactory(t, 256, 4)
	s := beginStream(t, f, 1)

	req := []byte("POST / HTTP/1.1\r\nHost: a\r\nContent-Length: 12\r\n\r\n123456789012")
	require.NoError(t, s.HandleData(fabric.DataFrame{StreamID: 1, Payload: req}))

	require.Len(t, backend.begins, 1)
	targetID := backend.begins[0].targetID
	assert.Empty(t, backend.body(targetID))

	require.NoError(t, backend.window(targetID, 4))
	assert.Equal(t, "1234", string(backend.body(targetID)))
	assert.False(t, backend.ended[targetID])

	require.NoError(t, backend.window(targetID, 8))
	assert.Equal(t, "123456789012", string(backend.body(targetID)))
	assert.True(t, backend.ended[targetID])
}
