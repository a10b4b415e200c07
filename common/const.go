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

package common

const (
	// App 应用程序名称
	App = "nukleus-http"

	// Version 应用程序版本
	Version = "v0.0.1"

	// ReadWriteBlockSize 默认的帧负载读取块大小
	//
	// fabric DATA 帧的负载在到达 source-input 处理器之前已经完成了切割
	// 这里保留一个折中的默认块大小 用作未声明容量时的 slab 槽位容量
	ReadWriteBlockSize = 4096
)
