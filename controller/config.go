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

package controller

// Config 描述了 controller 自身（非其协作方）可调的参数
type Config struct {
	// RoutesKey 是配置文件中路由表所在的节点名
	RoutesKey string `config:"routesKey"`
}

func (c Config) routesKey() string {
	if c.RoutesKey == "" {
		return "routes"
	}
	return c.RoutesKey
}
