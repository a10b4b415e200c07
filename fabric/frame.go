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

// Package fabric 描述了 source-input 处理器与底层帧传输之间的契约
//
// fabric 本身（ring-buffer I/O、跨进程调度）不在本仓库范围之内 这里只声明
// BEGIN/DATA/END/WINDOW/RESET 帧的语义形态 以及 source-input 处理器所依赖
// 的外部协作方接口（下游 Target、上游 Source 句柄、节流回调 ThrottleHandler）
// 路由查询由 route 包提供
package fabric

import "strings"

// StreamID 标识 fabric 上的一条带方向数据流
type StreamID uint64

// Headers 是一组有序的 header 键值对
//
// HTTP-BEGIN-extension 帧携带的是伪 header（`:method`、`:path`、`:scheme`、
// `:authority`）与普通 header 的混合列表 名称一律小写 因此没有使用
// net/http.Header（它会把 header 名重新规范化为 `Content-Length` 这种大小写
// 形式，与协议行描述的「小写 field name」要求相冲突）
type Headers struct {
	items [][2]string
}

// NewHeaders 创建一个空的 Headers 列表
func NewHeaders() *Headers {
	return &Headers{}
}

// Set 设置 name 的唯一取值 替换所有既存同名条目
func (h *Headers) Set(name, value string) {
	name = strings.ToLower(name)
	for i := range h.items {
		if h.items[i][0] == name {
			h.items[i][1] = value
			return
		}
	}
	h.items = append(h.items, [2]string{name, value})
}

// Add 追加一个 name/value 条目 允许同名重复出现
func (h *Headers) Add(name, value string) {
	h.items = append(h.items, [2]string{strings.ToLower(name), value})
}

// Get 返回 name 的第一个取值 不存在时返回空字符串
func (h *Headers) Get(name string) string {
	name = strings.ToLower(name)
	for _, kv := range h.items {
		if kv[0] == name {
			return kv[1]
		}
	}
	return ""
}

// Has 判断 name 是否出现过
func (h *Headers) Has(name string) bool {
	name = strings.ToLower(name)
	for _, kv := range h.items {
		if kv[0] == name {
			return true
		}
	}
	return false
}

// Values 返回 name 对应的所有取值
func (h *Headers) Values(name string) []string {
	name = strings.ToLower(name)
	var vs []string
	for _, kv := range h.items {
		if kv[0] == name {
			vs = append(vs, kv[1])
		}
	}
	return vs
}

// Range 按插入顺序遍历所有 name/value 条目
func (h *Headers) Range(f func(name, value string)) {
	for _, kv := range h.items {
		f(kv[0], kv[1])
	}
}

// Len 返回条目数量
func (h *Headers) Len() int {
	return len(h.items)
}

// BeginFrame 对应 BEGIN 帧
type BeginFrame struct {
	StreamID      StreamID
	ReferenceID   uint64
	CorrelationID uint64
}

// DataFrame 对应 DATA 帧
//
// Payload 为只读切片 处理方不允许修改其底层内存
type DataFrame struct {
	StreamID StreamID
	Payload  []byte
}

// EndFrame 对应 END 帧
type EndFrame struct {
	StreamID StreamID
}

// WindowFrame 对应节流方向的 WINDOW 帧
type WindowFrame struct {
	StreamID StreamID
	Update   int
}

// ResetFrame 对应节流方向的 RESET 帧
type ResetFrame struct {
	StreamID StreamID
}

// ThrottleHandler 描述了 Target 侧 WINDOW/RESET 帧的回调方式
//
// Target 在产生节流帧时会调用当前注册的 ThrottleHandler 由它决定如何
// 影响 source-input 侧的状态机（见 httpsource 的节流状态机实现）
type ThrottleHandler func(frame any) error

// Target 代表下游应用目标的 HTTP 写入端
//
// HTTP-BEGIN-extension 帧（BEGIN 附带的 header 列表）通过 headers 参数传递
type Target interface {
	// DoHTTPBegin 向目标开启一条新的输出流
	DoHTTPBegin(targetID StreamID, targetRef uint64, correlationID uint64, headers *Headers) error

	// DoHTTPData 向目标转发请求体数据
	DoHTTPData(targetID StreamID, p []byte) error

	// DoHTTPEnd 结束目标流的请求体
	DoHTTPEnd(targetID StreamID) error

	// SetThrottle 为 targetID 注册节流回调
	SetThrottle(targetID StreamID, handler ThrottleHandler)

	// RemoveThrottle 注销 targetID 的节流回调
	RemoveThrottle(targetID StreamID)
}

// Source 代表上游 fabric 连接的句柄
type Source interface {
	// DoWindow 向 source 授予 update 字节的信用
	DoWindow(sourceID StreamID, update int) error

	// DoReset 终止入站流
	DoReset(sourceID StreamID) error

	// RemoveStream 注销 sourceID 对应的流
	RemoveStream(sourceID StreamID)
}
