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
	"bytes"

	"github.com/packetd/nukleus-http/correlation"
	"github.com/packetd/nukleus-http/fabric"
	"github.com/packetd/nukleus-http/route"
	"github.com/packetd/nukleus-http/slab"
)

// decoderState 是 HTTP/1.1 请求解析所处的阶段 对应 §4.2
type decoderState uint8

const (
	decodeHTTPBegin decoderState = iota
	decodeHTTPData
	decodeHTTPDataAfterUpgrade
	drained
)

var crlfcrlf = []byte("\r\n\r\n")

// decode 消费一段全新到达（尚未进入槽位）的数据
//
// 未能完全消费时 剩余部分需要被缓冲：要么等待更多 header 字节
// 要么是 body 阶段受 target 信用限制暂时无法转发
func (s *SourceInputStream) decode(p []byte) error {
	consumed, err := s.stepDecoder(p)
	if err != nil {
		return err
	}
	if consumed < len(p) {
		return s.bufferLeftover(p[consumed:])
	}
	return nil
}

// stepDecoder 在当前 decoderState 下尽可能多地消费 data 允许单次调用内
// 跨越多个流水线请求（body 结束后立即回到 decodeHttpBegin 继续解析）
func (s *SourceInputStream) stepDecoder(data []byte) (int, error) {
	total := 0
	for total < len(data) {
		var (
			n       int
			blocked bool
			err     error
		)
		switch s.decoderState {
		case decodeHTTPBegin:
			n, blocked, err = s.stepDecodeHTTPBegin(data[total:])
		case decodeHTTPData:
			n, blocked, err = s.stepDecodeHTTPData(data[total:])
		case decodeHTTPDataAfterUpgrade:
			n, blocked, err = s.stepDecodeHTTPDataAfterUpgrade(data[total:])
		case drained:
			return len(data), nil
		}
		if err != nil {
			return total, err
		}
		total += n
		if blocked {
			return total, nil
		}
	}
	return total, nil
}

// stepDecodeHTTPBegin 扫描 CRLF CRLF 边界并解析请求行与 header
func (s *SourceInputStream) stepDecodeHTTPBegin(data []byte) (int, bool, error) {
	idx := bytes.Index(data, crlfcrlf)
	if idx == -1 {
		return 0, true, nil
	}
	headerBlock := data[:idx]
	consumed := idx + len(crlfcrlf)

	parsed, outcome := parseRequestHeaders(headerBlock)
	if outcome != parseOK {
		return consumed, false, s.rejectWithCanned(cannedResponseFor(outcome))
	}

	candidates := s.factory.routes.SupplyRoutes(s.sourceRef)
	r, ok := route.Resolve(candidates, parsed.headers)
	if !ok {
		return consumed, false, s.rejectWithCanned(responseNotFound)
	}

	target, ok := s.factory.resolveTarget(r.Target)
	if !ok {
		return consumed, false, s.rejectWithCanned(responseNotFound)
	}

	if err := s.beginTarget(target, r, parsed); err != nil {
		return consumed, false, err
	}
	return consumed, false, nil
}

// beginTarget 向选中的 target 打开一条输出流 并按请求形态推进解码/节流状态
//
// correlation 句柄在一条 source 连接的生命周期内只创建一次并被所有流水线
// 请求共享：pendingRequests 需要跨请求累加 §9 才不会把前一个请求的响应
// 状态过早丢弃。每个请求仍然拿到自己的 targetID 并以此重新注册同一个句柄
// 注册键必须与发给 target 的 correlationID 一致 响应侧才能通过 target 的
// 回复 BEGIN 帧把它解析回来
func (s *SourceInputStream) beginTarget(target fabric.Target, r route.Route, parsed *parsedRequest) error {
	s.target = target
	s.targetID = s.factory.nextTargetID()
	s.hasUpgrade = parsed.hasUpgrade
	s.contentRemaining = parsed.contentLength

	if s.correlation == nil {
		state := correlation.NewOutputEstablishedState(uint64(s.sourceID), r.Target)
		s.correlation = correlation.New(true, correlation.OutputEstablished, state)
	}
	s.correlation.State.BeginRequest()
	s.factory.correlations.CorrelateNew(uint64(s.targetID), s.correlation)

	if err := target.DoHTTPBegin(s.targetID, r.TargetRef, uint64(s.targetID), parsed.headers); err != nil {
		return err
	}
	target.SetThrottle(s.targetID, s.makeThrottleHandler())

	switch {
	case s.hasUpgrade:
		s.decoderState = decodeHTTPDataAfterUpgrade
		s.throttleState = throttleForHTTPDataAfterUpgrade
	case s.contentRemaining > 0:
		s.decoderState = decodeHTTPData
		s.throttleState = throttleForHTTPData
	default:
		s.throttleState = throttleIgnoreWindow
		if err := target.DoHTTPEnd(s.targetID); err != nil {
			return err
		}
		// decoderState 保持 decodeHttpBegin：就地准备好解析下一条流水线请求
	}
	return nil
}

// stepDecodeHTTPData 转发最多 min(available, contentRemaining, availableTargetWindow) 字节
func (s *SourceInputStream) stepDecodeHTTPData(data []byte) (int, bool, error) {
	n := len(data)
	if s.contentRemaining < n {
		n = s.contentRemaining
	}
	if s.availableTargetWindow < n {
		n = s.availableTargetWindow
	}

	if n > 0 {
		if err := s.target.DoHTTPData(s.targetID, data[:n]); err != nil {
			return 0, false, err
		}
		s.contentRemaining -= n
		s.availableTargetWindow -= n
	}

	if s.contentRemaining == 0 {
		if err := s.target.DoHTTPEnd(s.targetID); err != nil {
			return n, false, err
		}
		s.decoderState = decodeHTTPBegin
		s.throttleState = throttleIgnoreWindow
		return n, false, nil
	}
	return n, true, nil
}

// stepDecodeHTTPDataAfterUpgrade 转发最多 min(available, availableTargetWindow) 字节
// 没有内容长度概念 永不发出 HTTP-END
func (s *SourceInputStream) stepDecodeHTTPDataAfterUpgrade(data []byte) (int, bool, error) {
	n := len(data)
	if s.availableTargetWindow < n {
		n = s.availableTargetWindow
	}
	if n > 0 {
		if err := s.target.DoHTTPData(s.targetID, data[:n]); err != nil {
			return 0, false, err
		}
		s.availableTargetWindow -= n
	}
	return n, n < len(data), nil
}

// bufferLeftover 把尚未消费的尾部字节存入槽位 必要时先获取槽位
//
// 若处于 decodeHttpBegin 且槽位即将被写满而 source window 已耗尽
// 说明请求头超过了槽位容量 按 431 处理
func (s *SourceInputStream) bufferLeftover(p []byte) error {
	if s.slotIndex == slab.NoSlot {
		slot := s.factory.slab.Acquire(uint64(s.sourceID))
		if slot == slab.NoSlot {
			if s.factory.metrics != nil {
				s.factory.metrics.slabExhausted.Inc()
			}
			return s.rejectWithCanned(responseHeadersTooLarge)
		}
		s.slotIndex = slot
		s.slotOffset = 0
		s.slotPosition = 0
	}
	s.appendToSlot(p)
	return s.checkHeaderOverflow()
}

func (s *SourceInputStream) checkHeaderOverflow() error {
	if s.decoderState != decodeHTTPBegin {
		return nil
	}
	buf := s.factory.slab.Buffer(s.slotIndex)
	if s.window == 0 && len(buf)-s.slotPosition < 2 {
		return s.rejectWithCanned(responseHeadersTooLarge)
	}
	return nil
}

func cannedResponseFor(outcome parseOutcome) []byte {
	switch outcome {
	case parseUnsupportedVersion:
		return responseVersionNotSupported
	default:
		return responseBadRequest
	}
}

// rejectWithCanned 实现 §4.5 的非法请求处理：打开一条 reject target 输出流
// 安装 rejectWriter 节流 授予 source 足够的信用以排空当前缓冲的请求
// 随后立即重置 source 侧流
func (s *SourceInputStream) rejectWithCanned(payload []byte) error {
	rejectTarget, rejectID := s.factory.openRejectTarget(s.sourceID)
	s.releaseSlot()

	s.target = rejectTarget
	s.targetID = rejectID
	s.rejectPayload = payload
	s.rejectOffset = 0
	s.decoderState = drained
	s.throttleState = throttleRejectWriter

	if err := rejectTarget.DoHTTPBegin(rejectID, 0, s.sourceCorrelationID, nil); err != nil {
		return err
	}
	rejectTarget.SetThrottle(rejectID, s.makeThrottleHandler())

	grant := s.factory.slab.Capacity()
	s.window += grant
	if err := s.factory.source.DoWindow(s.sourceID, grant); err != nil {
		return err
	}
	return s.reset(resetReasonReject)
}
