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
	"github.com/stretchr/testify/require"

	"github.com/packetd/nukleus-http/confengine"
)

func TestLoadTableDecodesHeterogeneousMatchers(t *testing.T) {
	content := []byte(`
routes:
  - name: api
    sourceRef: source-a
    target: api-backend
    targetRef: api-backend
    headers:
      ":authority":
        exact: api.example.com
      "x-canary":
        present: true
`)
	conf, err := confengine.LoadContent(content)
	require.NoError(t, err)

	tbl, err := LoadTable(conf, "routes")
	require.NoError(t, err)

	candidates := tbl.SupplyRoutes(RefHash("source-a"))
	require.Len(t, candidates, 1)
	assert.Equal(t, "api", candidates[0].Name)
	assert.Equal(t, RefHash("api-backend"), candidates[0].TargetRef)
}
