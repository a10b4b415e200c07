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

package slab

import (
	"github.com/valyala/bytebufferpool"
)

// Scratch 是一块由工厂持有的临时搬运区
//
// 槽位是线性 buffer：当在 offset 处追加数据会超出容量时 需要先将
// [offset, position) 区间搬运至 offset 0 再继续追加 直接在同一个底层
// 数组上做 overlapping copy 容易出错 因此借助一块独立的临时区先拷出再拷回
type Scratch struct {
	buf bytebufferpool.ByteBuffer
}

// Compact 将 region[offset:position] 搬运到 region 的起始位置
//
// 返回搬运后新的 position（即被搬运区间的长度）
func (s *Scratch) Compact(region []byte, offset, position int) int {
	s.buf.Reset()
	s.buf.Write(region[offset:position])

	n := copy(region, s.buf.B)
	return n
}
