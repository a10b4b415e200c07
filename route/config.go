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

package route

import (
	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"

	"github.com/packetd/nukleus-http/confengine"
)

// MatchConfig 描述了配置文件中单个 header matcher 的声明
//
// 三种匹配模式互斥 按 Exact > Prefix > Present 顺序生效
type MatchConfig struct {
	Exact   string `mapstructure:"exact"`
	Prefix  string `mapstructure:"prefix"`
	Present bool   `mapstructure:"present"`
}

func (m MatchConfig) build(header string) HeaderMatcher {
	switch {
	case m.Exact != "":
		return NewExactMatcher(header, m.Exact)
	case m.Prefix != "":
		return NewPrefixMatcher(header, m.Prefix)
	default:
		return NewPresentMatcher(header)
	}
}

// Config 描述了配置文件中单条路由的声明
//
// SourceRef/TargetRef 在配置中使用可读性更好的字符串别名
// 加载时经由 xxhash 映射为 SourceInputStream 实际比较所用的 uint64 路由键
type Config struct {
	Name      string                 `mapstructure:"name"`
	SourceRef string                 `mapstructure:"sourceRef"`
	Headers   map[string]MatchConfig `mapstructure:"headers"`
	Target    string                 `mapstructure:"target"`
	TargetRef string                 `mapstructure:"targetRef"`
}

// RefHash 将路由别名映射为 uint64 路由键
//
// 同一别名总是映射为同一个 xxhash 值 因此 Reload 前后的路由键保持稳定
func RefHash(alias string) uint64 {
	return xxhash.Sum64String(alias)
}

// validate 校验单条路由声明的必填字段
//
// name/target 为空的路由在表中无法被有意义地匹配或转发 因此在加载阶段就
// 拒绝 而不是留到运行时才发现
func (c Config) validate() error {
	if c.Name == "" {
		return newError("route missing required field %q", "name")
	}
	if c.Target == "" {
		return newError("route %q missing required field %q", c.Name, "target")
	}
	return nil
}

func (c Config) build() Route {
	r := Route{
		Name:      c.Name,
		SourceRef: RefHash(c.SourceRef),
		Target:    c.Target,
		TargetRef: RefHash(c.TargetRef),
	}
	for header, match := range c.Headers {
		r.Matchers = append(r.Matchers, match.build(header))
	}
	return r
}

// LoadTable 从配置节点中解析出一张路由表
//
// 配置节点本身是一组异构的 map（每条路由的 headers 字段形态各不相同）
// 因此这里没有复用 confengine.Config.Unpack（依赖 go-ucfg 的严格类型解码）
// 而是先取出原始内容 再交由 mapstructure 做弱类型解码
func LoadTable(conf *confengine.Config, key string) (*Table, error) {
	var raw []map[string]any
	if err := conf.UnpackChild(key, &raw); err != nil {
		return nil, newError("failed to unpack %q: %v", key, err)
	}

	var configs []Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &configs,
	})
	if err != nil {
		return nil, newError("failed to build decoder: %v", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, newError("failed to decode routes: %v", err)
	}

	var result *multierror.Error
	routes := make([]Route, 0, len(configs))
	for _, c := range configs {
		if err := c.validate(); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		routes = append(routes, c.build())
	}
	if result != nil {
		return nil, result.ErrorOrNil()
	}
	return NewTable(routes), nil
}
