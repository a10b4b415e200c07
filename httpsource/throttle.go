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
	"github.com/packetd/nukleus-http/fabric"
	"github.com/packetd/nukleus-http/slab"
)

// throttleState 是 target 侧节流帧分派所处的状态 对应 §4.4
type throttleState uint8

const (
	throttleIgnoreWindow throttleState = iota
	throttleForHTTPData
	throttleForHTTPDataAfterUpgrade
	throttlePropagateWindow
	throttleRejectWriter
)

// makeThrottleHandler 把当前流绑定到一个 fabric.ThrottleHandler
//
// 所有 handler 都先核对 frame 的 streamId 是否等于当前 targetId；不相等的
// 陈旧节流帧（上一条已结束的 target 流遗留）被静默丢弃
func (s *SourceInputStream) makeThrottleHandler() fabric.ThrottleHandler {
	return func(frame any) error {
		switch f := frame.(type) {
		case fabric.WindowFrame:
			return s.HandleTargetWindow(f)
		case fabric.ResetFrame:
			return s.HandleTargetReset(f)
		default:
			return newError("unexpected throttle frame %T", frame)
		}
	}
}

// dispatchThrottleWindow 按当前 throttleState 处理一次 target WINDOW 信用
func (s *SourceInputStream) dispatchThrottleWindow(update int) error {
	switch s.throttleState {
	case throttleForHTTPData:
		return s.throttleForHTTPDataWindow(update)
	case throttleForHTTPDataAfterUpgrade:
		return s.throttleForHTTPDataAfterUpgradeWindow(update)
	case throttlePropagateWindow:
		return s.throttlePropagateWindowUpdate(update)
	case throttleRejectWriter:
		return s.throttleRejectWriterWindow(update)
	default:
		// throttleIgnoreWindow：header 阶段的信用不会被传导 见 §4.4 rationale
		return nil
	}
}

// dispatchThrottleReset 处理一次 target RESET：释放槽位并向 source 传导重置
func (s *SourceInputStream) dispatchThrottleReset() error {
	s.releaseSlot()
	if s.streamState == rejectedOrReset || s.streamState == afterEnd {
		return nil
	}
	return s.reset(resetReasonTarget)
}

// throttleForHTTPDataWindow 累积 target 信用 尝试排空槽位 再按 min(C, availableTargetWindow)
// 补足 source 侧的信用
func (s *SourceInputStream) throttleForHTTPDataWindow(update int) error {
	s.availableTargetWindow += update
	if s.slotIndex != slab.NoSlot {
		if err := s.processDeferredData(); err != nil {
			return err
		}
	}
	return s.replenishSourceWindow()
}

// throttleForHTTPDataAfterUpgradeWindow 与 throttleForHTTPDataWindow 相同
// 一旦槽位清空且 source 信用追上 target 信用 即转入 propagateWindow 稳态
func (s *SourceInputStream) throttleForHTTPDataAfterUpgradeWindow(update int) error {
	s.availableTargetWindow += update
	if s.slotIndex != slab.NoSlot {
		if err := s.processDeferredData(); err != nil {
			return err
		}
	}
	if err := s.replenishSourceWindow(); err != nil {
		return err
	}
	// "source window 已追上 availableTargetWindow" 在有界的 C 之下未必能做到
	// 字节级精确相等：一旦槽位清空就说明初始缓冲已经排空 没有更多积压字节
	// 需要受 min(C, availableTargetWindow) 约束 此后转入对称直通管道即可
	if s.slotIndex == slab.NoSlot {
		s.throttleState = throttlePropagateWindow
	}
	return nil
}

// throttlePropagateWindowUpdate 在 upgrade 稳态下把信用 1:1 透传给 source
func (s *SourceInputStream) throttlePropagateWindowUpdate(update int) error {
	s.availableTargetWindow += update
	s.window += update
	return s.factory.source.DoWindow(s.sourceID, update)
}

// throttleRejectWriterWindow 随着信用到达 逐步把预置响应字节吐给 reject target
func (s *SourceInputStream) throttleRejectWriterWindow(update int) error {
	remaining := len(s.rejectPayload) - s.rejectOffset
	n := update
	if n > remaining {
		n = remaining
	}
	if n > 0 {
		if err := s.target.DoHTTPData(s.targetID, s.rejectPayload[s.rejectOffset:s.rejectOffset+n]); err != nil {
			return err
		}
		s.rejectOffset += n
	}
	if s.rejectOffset >= len(s.rejectPayload) {
		if err := s.target.DoHTTPEnd(s.targetID); err != nil {
			return err
		}
		s.throttleState = throttleIgnoreWindow
		s.rejectPayload = nil
	}
	return nil
}

// replenishSourceWindow 确保 source 侧信用追上 min(availableTargetWindow, C)
func (s *SourceInputStream) replenishSourceWindow() error {
	target := s.availableTargetWindow
	if cap := s.factory.slab.Capacity(); target > cap {
		target = cap
	}
	if target <= s.window {
		return nil
	}
	grant := target - s.window
	s.window = target
	return s.factory.source.DoWindow(s.sourceID, grant)
}
