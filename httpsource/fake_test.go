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
)

// fakeSource 记录所有面向 source 句柄的调用 供测试断言
type fakeSource struct {
	windows []int
	resets  int
	removed int
}

func (f *fakeSource) DoWindow(_ fabric.StreamID, update int) error {
	f.windows = append(f.windows, update)
	return nil
}

func (f *fakeSource) DoReset(_ fabric.StreamID) error {
	f.resets++
	return nil
}

func (f *fakeSource) RemoveStream(_ fabric.StreamID) {
	f.removed++
}

func (f *fakeSource) totalWindow() int {
	n := 0
	for _, w := range f.windows {
		n += w
	}
	return n
}

// beginCall 记录一次 doHttpBegin 调用的参数
type beginCall struct {
	targetID      fabric.StreamID
	targetRef     uint64
	correlationID uint64
	headers       *fabric.Headers
}

// fakeTarget 记录所有面向 target 的调用 并保存注册的节流回调以便测试直接触发
type fakeTarget struct {
	begins    []beginCall
	data      map[fabric.StreamID][][]byte
	ended     map[fabric.StreamID]bool
	throttles map[fabric.StreamID]fabric.ThrottleHandler
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		data:      make(map[fabric.StreamID][][]byte),
		ended:     make(map[fabric.StreamID]bool),
		throttles: make(map[fabric.StreamID]fabric.ThrottleHandler),
	}
}

func (f *fakeTarget) DoHTTPBegin(targetID fabric.StreamID, targetRef uint64, correlationID uint64, headers *fabric.Headers) error {
	f.begins = append(f.begins, beginCall{targetID: targetID, targetRef: targetRef, correlationID: correlationID, headers: headers})
	return nil
}

func (f *fakeTarget) DoHTTPData(targetID fabric.StreamID, p []byte) error {
	cp := append([]byte(nil), p...)
	f.data[targetID] = append(f.data[targetID], cp)
	return nil
}

func (f *fakeTarget) DoHTTPEnd(targetID fabric.StreamID) error {
	f.ended[targetID] = true
	return nil
}

func (f *fakeTarget) SetThrottle(targetID fabric.StreamID, handler fabric.ThrottleHandler) {
	f.throttles[targetID] = handler
}

func (f *fakeTarget) RemoveThrottle(targetID fabric.StreamID) {
	delete(f.throttles, targetID)
}

func (f *fakeTarget) body(targetID fabric.StreamID) []byte {
	var out []byte
	for _, chunk := range f.data[targetID] {
		out = append(out, chunk...)
	}
	return out
}

func (f *fakeTarget) window(targetID fabric.StreamID, update int) error {
	return f.throttles[targetID](fabric.WindowFrame{StreamID: targetID, Update: update})
}

func (f *fakeTarget) sendReset(targetID fabric.StreamID) error {
	return f.throttles[targetID](fabric.ResetFrame{StreamID: targetID})
}
