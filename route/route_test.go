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

package route

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/nukleus-http/fabric"
)

func headersWithAuthority(authority string) *fabric.Headers {
	h := fabric.NewHeaders()
	h.Set(":authority", authority)
	return h
}

func TestResolveFirstMatchWins(t *testing.T) {
	routes := []Route{
		{Name: "a", Matchers: []HeaderMatcher{NewExactMatcher(":authority", "a.example.com")}, Target: "target-a"},
		{Name: "b", Matchers: []HeaderMatcher{NewPresentMatcher(":authority")}, Target: "target-b"},
	}

	r, ok := Resolve(routes, headersWithAuthority("a.example.com"))
	assert.True(t, ok)
	assert.Equal(t, "target-a", r.Target)

	r, ok = Resolve(routes, headersWithAuthority("other.example.com"))
	assert.True(t, ok)
	assert.Equal(t, "target-b", r.Target)
}

func TestResolveNoMatch(t *testing.T) {
	routes := []Route{
		{Name: "a", Matchers: []HeaderMatcher{NewExactMatcher(":authority", "a.example.com")}, Target: "target-a"},
	}
	_, ok := Resolve(routes, headersWithAuthority("nope"))
	assert.False(t, ok)
}

func TestTableSupplyRoutesGroupsBySourceRef(t *testing.T) {
	tbl := NewTable([]Route{
		{Name: "a", SourceRef: 1, Target: "target-a"},
		{Name: "b", SourceRef: 1, Target: "target-b"},
		{Name: "c", SourceRef: 2, Target: "target-c"},
	})

	assert.Len(t, tbl.SupplyRoutes(1), 2)
	assert.Len(t, tbl.SupplyRoutes(2), 1)
	assert.Len(t, tbl.SupplyRoutes(99), 0)
}

func TestNilTableSupplyRoutesReturnsEmpty(t *testing.T) {
	var tbl *Table
	assert.Nil(t, tbl.SupplyRoutes(1))
}
