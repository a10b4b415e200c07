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
	"sync/atomic"

	"github.com/packetd/nukleus-http/correlation"
	"github.com/packetd/nukleus-http/fabric"
	"github.com/packetd/nukleus-http/route"
	"github.com/packetd/nukleus-http/slab"
)

// defaultRejectTarget 是约定的回环应答 target 名称
//
// §4.5 把 reject path 描述为"概念上与 source 同名的回环应答通道"：一个生产
// 实现可以换成池化的回复通道 只要对外可见的响应字节不变
const defaultRejectTarget = "reject"

// SourceInputStreamFactory 为每条新入站流创建一个 SourceInputStream
// 并为其装配共享协作方：source 句柄、路由表、target 查找、关联登记、slab
type SourceInputStreamFactory struct {
	source  fabric.Source
	routes  *route.Table
	targets map[string]fabric.Target

	slab    *slab.Slab
	scratch *slab.Scratch

	correlations *correlation.Registry[*outputState]

	nextTarget uint64

	metrics *Metrics
}

// NewFactory 创建一个 SourceInputStreamFactory
func NewFactory(source fabric.Source, routes *route.Table, targets map[string]fabric.Target, opt Options, metrics *Metrics) *SourceInputStreamFactory {
	return &SourceInputStreamFactory{
		source:       source,
		routes:       routes,
		targets:      targets,
		slab:         slab.New(opt.SlotCapacity, opt.SlotCount),
		scratch:      &slab.Scratch{},
		correlations: correlation.NewRegistry[*outputState](),
		metrics:      metrics,
	}
}

// NewStream 为一条新的入站流创建处理器 初始状态为 beforeBegin
func (f *SourceInputStreamFactory) NewStream() *SourceInputStream {
	return &SourceInputStream{
		factory:     f,
		slotIndex:   slab.NoSlot,
		streamState: beforeBegin,
	}
}

// ReloadRoutes 原子地替换路由表
//
// Table 本身不可变 替换指针足以在协作式调度下保证无需加锁
func (f *SourceInputStreamFactory) ReloadRoutes(routes *route.Table) {
	f.routes = routes
}

func (f *SourceInputStreamFactory) resolveTarget(name string) (fabric.Target, bool) {
	t, ok := f.targets[name]
	return t, ok
}

func (f *SourceInputStreamFactory) nextTargetID() fabric.StreamID {
	return fabric.StreamID(atomic.AddUint64(&f.nextTarget, 1))
}

// openRejectTarget 打开一条指向回环应答 target 的新输出流
func (f *SourceInputStreamFactory) openRejectTarget(_ fabric.StreamID) (fabric.Target, fabric.StreamID) {
	target, ok := f.resolveTarget(defaultRejectTarget)
	if !ok {
		target = noopRejectTarget{}
	}
	if f.metrics != nil {
		f.metrics.rejectsTotal.Inc()
	}
	return target, f.nextTargetID()
}

// noopRejectTarget 在没有配置回环应答 target 时充当安全网
//
// 只吞掉调用 不做任何 I/O：保证 rejectWithCanned 的控制流始终完整
type noopRejectTarget struct{}

func (noopRejectTarget) DoHTTPBegin(fabric.StreamID, uint64, uint64, *fabric.Headers) error {
	return nil
}
func (noopRejectTarget) DoHTTPData(fabric.StreamID, []byte) error { return nil }
func (noopRejectTarget) DoHTTPEnd(fabric.StreamID) error          { return nil }
func (noopRejectTarget) SetThrottle(fabric.StreamID, fabric.ThrottleHandler) {}
func (noopRejectTarget) RemoveThrottle(fabric.StreamID)                     {}
