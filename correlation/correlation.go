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

// Package correlation 实现了 source 侧请求与（不在本仓库范围内的）
// source-output-established 响应侧之间共享的关联句柄
//
// 一条 fabric 连接上的多次请求共用同一个 Correlation 句柄：
// pendingRequests 记录仍在处理中的响应数量 source 收到 END 时调用
// DoEnd，要么立即结束回复流 要么置位 endRequested 交由响应侧在耗尽时结束
package correlation

import (
	"sync"

	"github.com/google/uuid"
)

// Kind 标识 Correlation 所承载的状态种类
type Kind string

// OutputEstablished 是目前唯一定义的 Correlation 状态种类
//
// 取名沿用了原协议对「响应侧已建立」状态的称呼
const OutputEstablished Kind = "OUTPUT_ESTABLISHED"

// OutputEstablishedState 是响应侧共享状态的句柄
//
// ReplyStreamID/TargetName 描述了应该把响应写到哪一条回复流
// pendingRequests/endRequested 实现了 §9 描述的"避免丢失最后一次响应"的协议
type OutputEstablishedState struct {
	mut sync.Mutex

	ReplyStreamID   uint64
	TargetName      string
	pendingRequests int
	endRequested    bool
}

// NewOutputEstablishedState 创建一个新的响应侧状态句柄
func NewOutputEstablishedState(replyStreamID uint64, targetName string) *OutputEstablishedState {
	return &OutputEstablishedState{
		ReplyStreamID: replyStreamID,
		TargetName:    targetName,
	}
}

// BeginRequest 标记新增了一个进行中的请求/响应对
func (s *OutputEstablishedState) BeginRequest() {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.pendingRequests++
}

// EndRequest 标记一个请求/响应对已经完成
//
// 返回 true 表示此时应当真正结束回复流（之前已经调用过 DoEnd 但碍于还有
// 请求未完成而被推迟）
func (s *OutputEstablishedState) EndRequest() bool {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.pendingRequests > 0 {
		s.pendingRequests--
	}
	return s.pendingRequests == 0 && s.endRequested
}

// PendingRequests 返回当前仍在处理中的请求数量
func (s *OutputEstablishedState) PendingRequests() int {
	s.mut.Lock()
	defer s.mut.Unlock()
	return s.pendingRequests
}

// DoEnd 在 source 侧收到 END 时调用
//
// 没有请求在途时立即调用 supplyTarget 结束回复流；否则只是记下
// endRequested 留给响应侧在耗尽 pendingRequests 时结束
func (s *OutputEstablishedState) DoEnd(supplyTarget func()) {
	s.mut.Lock()
	if s.pendingRequests > 0 {
		s.endRequested = true
		s.mut.Unlock()
		return
	}
	s.mut.Unlock()
	supplyTarget()
}

// EndRequested 返回是否已经请求过结束（仅用于测试/诊断）
func (s *OutputEstablishedState) EndRequested() bool {
	s.mut.Lock()
	defer s.mut.Unlock()
	return s.endRequested
}

// Correlation 是 source 请求与响应侧状态之间的共享句柄
type Correlation[T any] struct {
	SourceCorrelationID uint64
	SourceRoutable      bool
	Kind                Kind
	State               T
}

// New 创建一个新的 Correlation 句柄 并分配一个随机的关联 id
//
// 使用 uuid 派生出的 64bit 值而不是自增计数器 以便多个并发 source-input
// 处理器无需共享计数器即可产生互不冲突的关联 id
func New[T any](sourceRoutable bool, kind Kind, state T) *Correlation[T] {
	return &Correlation[T]{
		SourceCorrelationID: newCorrelationID(),
		SourceRoutable:      sourceRoutable,
		Kind:                kind,
		State:               state,
	}
}

func newCorrelationID() uint64 {
	id := uuid.New()
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(id[i])
	}
	return v
}

// Registry 是一个共享的关联表 供响应侧在拿到目标的 BEGIN 回复时按
// targetCorrelationId 取回先前注册的 Correlation 句柄
type Registry[T any] struct {
	mut sync.RWMutex
	m   map[uint64]*Correlation[T]
}

// NewRegistry 创建一个空的关联表
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{m: make(map[uint64]*Correlation[T])}
}

// CorrelateNew 注册一个新的关联句柄
func (r *Registry[T]) CorrelateNew(targetCorrelationID uint64, c *Correlation[T]) {
	r.mut.Lock()
	defer r.mut.Unlock()
	r.m[targetCorrelationID] = c
}

// Resolve 按 targetCorrelationId 取回关联句柄
func (r *Registry[T]) Resolve(targetCorrelationID uint64) (*Correlation[T], bool) {
	r.mut.RLock()
	defer r.mut.RUnlock()
	c, ok := r.m[targetCorrelationID]
	return c, ok
}

// Remove 注销一个关联句柄
func (r *Registry[T]) Remove(targetCorrelationID uint64) {
	r.mut.Lock()
	defer r.mut.Unlock()
	delete(r.m, targetCorrelationID)
}

// Len 返回当前注册的关联句柄数量
func (r *Registry[T]) Len() int {
	r.mut.RLock()
	defer r.mut.RUnlock()
	return len(r.m)
}
