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
	"github.com/packetd/nukleus-http/common"
)

// defaultSlotCapacity 是未声明 slotCapacity 时使用的默认值
//
// 与 common.ReadWriteBlockSize 保持一致：既是请求头的上限大小
// 也是请求体在被目标限速时的单 slot 缓冲能力
const defaultSlotCapacity = common.ReadWriteBlockSize

// defaultSlotCount 是未声明 slotCount 时使用的默认值
const defaultSlotCount = 64

// Options 描述了 SourceInputStreamFactory 可调的容量参数
type Options struct {
	// SlotCapacity 是单个 slab 槽位的字节容量 C
	//
	// 同时限定了请求头部的最大尺寸与请求体被节流时的缓冲上限
	SlotCapacity int

	// SlotCount 是 slab 的槽位数量 N 限定了同时处于部分接收状态的请求数
	SlotCount int
}

// FromCommonOptions 从通用配置节点中解析 Options
func FromCommonOptions(o common.Options) (Options, error) {
	opt := Options{SlotCapacity: defaultSlotCapacity, SlotCount: defaultSlotCount}

	if v, ok := o["slotCapacity"]; ok {
		n, err := o.GetInt("slotCapacity")
		if err != nil {
			return opt, newError("invalid slotCapacity %v: %v", v, err)
		}
		opt.SlotCapacity = n
	}
	if v, ok := o["slotCount"]; ok {
		n, err := o.GetInt("slotCount")
		if err != nil {
			return opt, newError("invalid slotCount %v: %v", v, err)
		}
		opt.SlotCount = n
	}
	return opt, nil
}
