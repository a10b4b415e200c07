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
	"strings"
)

type exactMatcher struct {
	name  string
	value string
}

// NewExactMatcher 要求 header 至少一个取值与 value 完全相等
func NewExactMatcher(name, value string) HeaderMatcher {
	return &exactMatcher{name: strings.ToLower(name), value: value}
}

func (m *exactMatcher) Name() string { return m.name }

func (m *exactMatcher) Match(values []string) bool {
	for _, v := range values {
		if v == m.value {
			return true
		}
	}
	return false
}

type prefixMatcher struct {
	name   string
	prefix string
}

// NewPrefixMatcher 要求 header 至少一个取值以 prefix 开头
func NewPrefixMatcher(name, prefix string) HeaderMatcher {
	return &prefixMatcher{name: strings.ToLower(name), prefix: prefix}
}

func (m *prefixMatcher) Name() string { return m.name }

func (m *prefixMatcher) Match(values []string) bool {
	for _, v := range values {
		if strings.HasPrefix(v, m.prefix) {
			return true
		}
	}
	return false
}

type presentMatcher struct {
	name string
}

// NewPresentMatcher 只要求 header 出现过（不限制取值）
func NewPresentMatcher(name string) HeaderMatcher {
	return &presentMatcher{name: strings.ToLower(name)}
}

func (m *presentMatcher) Name() string { return m.name }

func (m *presentMatcher) Match(values []string) bool {
	return len(values) > 0
}
