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
)

func TestExactMatcher(t *testing.T) {
	m := NewExactMatcher("Host", "a.example.com")
	assert.Equal(t, "host", m.Name())
	assert.True(t, m.Match([]string{"a.example.com"}))
	assert.False(t, m.Match([]string{"b.example.com"}))
	assert.False(t, m.Match(nil))
}

func TestPrefixMatcher(t *testing.T) {
	m := NewPrefixMatcher(":path", "/api/")
	assert.True(t, m.Match([]string{"/api/users"}))
	assert.False(t, m.Match([]string{"/other"}))
}

func TestPresentMatcher(t *testing.T) {
	m := NewPresentMatcher("x-trace-id")
	assert.True(t, m.Match([]string{""}))
	assert.False(t, m.Match(nil))
}
