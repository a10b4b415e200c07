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

// Package httpsource 实现了 source-input 流处理器：在 fabric 与下游 HTTP
// target 之间解码 HTTP/1.1 请求、做路由选择 并在两段独立的信用流控域之间
// 转发字节
package httpsource

import (
	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	format = "httpsource: " + format
	return errors.Errorf(format, args...)
}
