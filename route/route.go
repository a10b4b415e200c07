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

// Package route 维护着 source-input 处理器使用的只读路由表
//
// Route 的选择规则是 "first-match"：对于给定的 sourceRef 按声明顺序遍历
// 候选 Route 返回第一个所有 header matcher 均成立的条目
package route

import (
	"github.com/pkg/errors"

	"github.com/packetd/nukleus-http/fabric"
)

func newError(format string, args ...any) error {
	format = "route: " + format
	return errors.Errorf(format, args...)
}

// HeaderMatcher 判断请求 header 是否满足某个匹配条件
type HeaderMatcher interface {
	// Name 返回所匹配的 header 名称（已转为小写）
	Name() string

	// Match 判断 values 是否满足匹配条件
	Match(values []string) bool
}

// Route 代表一条只读的路由表项
type Route struct {
	// Name 路由名称 仅用于日志与调试
	Name string

	// SourceRef 选中此路由候选集合的路由键
	SourceRef uint64

	// Matchers 必须全部匹配才会选中此路由
	Matchers []HeaderMatcher

	// Target 下游目标名称
	Target string

	// TargetRef 下游目标的路由键
	TargetRef uint64
}

// matches 判断 headers 是否满足本路由的全部 matcher
func (r Route) matches(headers *fabric.Headers) bool {
	for _, m := range r.Matchers {
		values := headers.Values(m.Name())
		if !m.Match(values) {
			return false
		}
	}
	return true
}

// Table 是一个只读的路由表快照
//
// Table 本身不可变：Reload 会构建一张新的 Table 并整体替换
// 以保证单线程协作式调度下无需对读路径加锁
type Table struct {
	bySourceRef map[uint64][]Route
}

// NewTable 由一组 Route 构建路由表 保留声明顺序
func NewTable(routes []Route) *Table {
	t := &Table{bySourceRef: make(map[uint64][]Route)}
	for _, r := range routes {
		t.bySourceRef[r.SourceRef] = append(t.bySourceRef[r.SourceRef], r)
	}
	return t
}

// SupplyRoutes 返回 sourceRef 对应的候选路由列表
func (t *Table) SupplyRoutes(sourceRef uint64) []Route {
	if t == nil {
		return nil
	}
	return t.bySourceRef[sourceRef]
}

// All 返回表中全部路由 声明顺序不保证跨 sourceRef 保留 仅用于管理端展示
func (t *Table) All() []Route {
	if t == nil {
		return nil
	}
	routes := make([]Route, 0)
	for _, candidates := range t.bySourceRef {
		routes = append(routes, candidates...)
	}
	return routes
}

// Resolve 按 first-match 规则在候选路由中选出第一个匹配 headers 的路由
func Resolve(candidates []Route, headers *fabric.Headers) (Route, bool) {
	for _, r := range candidates {
		if r.matches(headers) {
			return r, true
		}
	}
	return Route{}, false
}
