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
	"github.com/packetd/nukleus-http/correlation"
	"github.com/packetd/nukleus-http/fabric"
	"github.com/packetd/nukleus-http/slab"
)

// streamState 是 source 侧帧分派所处的状态 对应 §4.3
type streamState uint8

const (
	beforeBegin streamState = iota
	afterBeginOrData
	withDeferredData
	rejectedOrReset
	afterEnd
)

// outputState 是与响应侧共享的关联状态别名
type outputState = correlation.OutputEstablishedState

// reset 的 reason 标签取值 对应 resetsTotal 这个 CounterVec 的各个 series
const (
	resetReasonProtocol = "protocol"
	resetReasonWindow   = "window"
	resetReasonTarget   = "target"
	resetReasonReject   = "reject"
)

// SourceInputStream 是每条入站流的解码与流控核心
//
// 所有状态变更都发生在由宿主 fabric 循环串行调用的帧分派回调内部 不需要锁
type SourceInputStream struct {
	factory *SourceInputStreamFactory

	sourceID            fabric.StreamID
	sourceCorrelationID uint64
	sourceRef           uint64

	target   fabric.Target
	targetID fabric.StreamID

	slotIndex    int
	slotOffset   int
	slotPosition int

	window                int
	availableTargetWindow int
	contentRemaining      int
	hasUpgrade            bool
	endDeferred           bool

	decoderState  decoderState
	streamState   streamState
	throttleState throttleState

	correlation *correlation.Correlation[*outputState]

	// rejectPayload/rejectOffset 驱动 rejectWriter：canned response 尚未
	// 发送完毕的剩余字节与偏移
	rejectPayload []byte
	rejectOffset  int
}

// HandleBegin 处理来自 source 的 BEGIN 帧
func (s *SourceInputStream) HandleBegin(frame fabric.BeginFrame) error {
	switch s.streamState {
	case beforeBegin:
		s.sourceID = frame.StreamID
		s.sourceCorrelationID = frame.CorrelationID
		s.sourceRef = frame.ReferenceID
		s.window = s.factory.slab.Capacity()
		s.streamState = afterBeginOrData
		return s.factory.source.DoWindow(s.sourceID, s.window)
	default:
		return s.reset(resetReasonProtocol)
	}
}

// HandleData 处理来自 source 的 DATA 帧
func (s *SourceInputStream) HandleData(frame fabric.DataFrame) error {
	switch s.streamState {
	case afterBeginOrData:
		if len(frame.Payload) > s.window {
			return s.reset(resetReasonWindow)
		}
		s.window -= len(frame.Payload)

		if err := s.decode(frame.Payload); err != nil {
			return err
		}
		if s.slotIndex != slab.NoSlot {
			s.streamState = withDeferredData
		}
		return nil

	case withDeferredData:
		if len(frame.Payload) > s.window {
			return s.reset(resetReasonWindow)
		}
		s.window -= len(frame.Payload)

		if err := s.bufferLeftover(frame.Payload); err != nil {
			return err
		}
		return s.processDeferredData()

	case rejectedOrReset:
		return s.factory.source.DoWindow(s.sourceID, len(frame.Payload))

	default:
		return s.reset(resetReasonProtocol)
	}
}

// HandleEnd 处理来自 source 的 END 帧
func (s *SourceInputStream) HandleEnd(_ fabric.EndFrame) error {
	switch s.streamState {
	case afterBeginOrData:
		s.releaseSlot()
		s.factory.source.RemoveStream(s.sourceID)
		s.streamState = afterEnd
		if s.correlation != nil {
			s.correlation.State.DoEnd(func() { _ = s.target.DoHTTPEnd(s.targetID) })
		}
		return nil

	case withDeferredData:
		s.endDeferred = true
		return nil

	case rejectedOrReset:
		s.factory.source.RemoveStream(s.sourceID)
		s.streamState = afterEnd
		return nil

	default:
		return s.reset(resetReasonProtocol)
	}
}

// reset 终止入站流：通知 source 侧 RESET 并进入 rejectedOrReset
func (s *SourceInputStream) reset(reason string) error {
	s.releaseSlot()
	s.streamState = rejectedOrReset
	if s.factory.metrics != nil {
		s.factory.metrics.resetsTotal.WithLabelValues(reason).Inc()
	}
	return s.factory.source.DoReset(s.sourceID)
}

func (s *SourceInputStream) releaseSlot() {
	s.factory.slab.Release(s.slotIndex)
	s.slotIndex = slab.NoSlot
	s.slotOffset = 0
	s.slotPosition = 0
}

// appendToSlot 把 p 追加到当前持有的槽位 必要时先压缩腾出空间
func (s *SourceInputStream) appendToSlot(p []byte) {
	buf := s.factory.slab.Buffer(s.slotIndex)
	if s.slotPosition+len(p) > len(buf) {
		s.slotPosition = s.factory.scratch.Compact(buf, s.slotOffset, s.slotPosition)
		s.slotOffset = 0
	}
	n := copy(buf[s.slotPosition:], p)
	s.slotPosition += n
}

// processDeferredData 持续消费槽位中缓冲的数据 直至耗尽或再次受限
//
// 槽位清空后转回 afterBeginOrData；若此前 END 已经到达（endDeferred）
// 则在这里真正执行结束动作
func (s *SourceInputStream) processDeferredData() error {
	for s.slotIndex != slab.NoSlot && s.slotOffset < s.slotPosition {
		buf := s.factory.slab.Buffer(s.slotIndex)
		consumed, err := s.stepDecoder(buf[s.slotOffset:s.slotPosition])
		if err != nil {
			return err
		}
		s.slotOffset += consumed
		if consumed == 0 {
			// 没有取得任何进展（目标信用耗尽）：停止 等待下一次 WINDOW
			return nil
		}
	}

	if s.slotIndex != slab.NoSlot && s.slotOffset >= s.slotPosition {
		s.releaseSlot()
	}

	// streamState 可能已经在解码过程中被 reset/reject 改写（比如遇到了非法
	// 请求）：只有仍处于 withDeferredData 时 槽位清空才意味着回到稳态
	if s.slotIndex == slab.NoSlot && s.streamState == withDeferredData {
		s.streamState = afterBeginOrData
		if s.endDeferred {
			s.endDeferred = false
			return s.HandleEnd(fabric.EndFrame{StreamID: s.sourceID})
		}
	}
	return nil
}

// HandleTargetWindow 处理来自 target 的 WINDOW 帧（节流方向）
func (s *SourceInputStream) HandleTargetWindow(frame fabric.WindowFrame) error {
	if frame.StreamID != s.targetID {
		return nil
	}
	return s.dispatchThrottleWindow(frame.Update)
}

// HandleTargetReset 处理来自 target 的 RESET 帧（节流方向）
func (s *SourceInputStream) HandleTargetReset(frame fabric.ResetFrame) error {
	if frame.StreamID != s.targetID {
		return nil
	}
	return s.dispatchThrottleReset()
}
