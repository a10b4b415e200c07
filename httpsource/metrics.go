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
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 汇总了 source-input 处理器对外暴露的计数器
//
// 这部分不在核心状态机之内 只是对外部观测者有用的附加信息
type Metrics struct {
	rejectsTotal    prometheus.Counter
	resetsTotal     *prometheus.CounterVec
	slabExhausted   prometheus.Counter
}

// NewMetrics 构建并向 reg 注册一组 Metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rejectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nukleus_http_source_rejects_total",
			Help: "Number of requests rejected with a canned error response.",
		}),
		resetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nukleus_http_source_resets_total",
			Help: "Number of source streams reset, labeled by reason.",
		}, []string{"reason"}),
		slabExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nukleus_http_source_slab_exhausted_total",
			Help: "Number of times slot acquisition failed because the slab was exhausted.",
		}),
	}
	reg.MustRegister(m.rejectsTotal, m.resetsTotal, m.slabExhausted)
	return m
}
