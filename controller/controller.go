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

// Package controller 把 source-input 处理器核心（httpsource）与配置加载、
// 日志、管理端 HTTP server 这些外围设施装配到一起
//
// fabric 传输本身（ring-buffer I/O、调度）、下游 target 的具体实现不在本
// 仓库范围之内：Controller 负责把它们的占位/可替换实现接到一起 让
// httpsource 的核心状态机可以被驱动起来
package controller

import (
	"context"
	"io"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packetd/nukleus-http/common"
	"github.com/packetd/nukleus-http/confengine"
	"github.com/packetd/nukleus-http/fabric"
	"github.com/packetd/nukleus-http/httpsource"
	"github.com/packetd/nukleus-http/internal/rescue"
	"github.com/packetd/nukleus-http/internal/sigs"
	"github.com/packetd/nukleus-http/logger"
	"github.com/packetd/nukleus-http/route"
	"github.com/packetd/nukleus-http/server"
)

// Controller 管理一个 nukleus HTTP source-input 适配器实例的生命周期
type Controller struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       Config
	buildInfo common.BuildInfo

	svr     *server.Server
	metrics *httpsource.Metrics

	mut     sync.RWMutex
	routes  *route.Table
	targets map[string]fabric.Target
	source  fabric.Source
	factory *httpsource.SourceInputStreamFactory
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if conf.Has("logger") {
		if err := conf.UnpackChild("logger", &opts); err != nil {
			return err
		}
	}

	if opts.Filename == "" {
		opts.Filename = "nukleus-http.log"
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}

	logger.SetOptions(opts)
	return nil
}

// loadHTTPSourceOptions 从 "httpsource" 配置节点解析 Options；节点缺失时
// 回退到默认值
func loadHTTPSourceOptions(conf *confengine.Config) (httpsource.Options, error) {
	if !conf.Has("httpsource") {
		return httpsource.FromCommonOptions(common.NewOptions())
	}

	raw := make(map[string]any)
	if err := conf.UnpackChild("httpsource", &raw); err != nil {
		return httpsource.Options{}, err
	}
	return httpsource.FromCommonOptions(common.Options(raw))
}

func loadRoutes(conf *confengine.Config, key string) (*route.Table, error) {
	if !conf.Has(key) {
		return route.NewTable(nil), nil
	}
	return route.LoadTable(conf, key)
}

// New 创建 Controller：装配日志、路由表、管理端 server 以及 httpsource 工厂
//
// target 的真实实现由宿主按需通过 RegisterTarget 注入；source 固定使用
// fabric.NewLoggingSource 占位 Controller 不提供替换 fabric.Source 的入口
func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Controller, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	var cfg Config
	if conf.Has("controller") {
		if err := conf.UnpackChild("controller", &cfg); err != nil {
			return nil, err
		}
	}

	routes, err := loadRoutes(conf, cfg.routesKey())
	if err != nil {
		return nil, err
	}

	opt, err := loadHTTPSourceOptions(conf)
	if err != nil {
		return nil, err
	}

	svr, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	reg := prometheus.DefaultRegisterer
	metrics := httpsource.NewMetrics(reg)

	targets := make(map[string]fabric.Target)
	source := fabric.NewLoggingSource()
	factory := httpsource.NewFactory(source, routes, targets, opt, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		buildInfo: buildInfo,
		svr:       svr,
		metrics:   metrics,
		routes:    routes,
		targets:   targets,
		source:    source,
		factory:   factory,
	}, nil
}

// RegisterTarget 把一个真实的下游 target 接入工厂的路由解析表
//
// 应在 Start 之前调用：工厂在单线程协作式调度下读取 targets map 时不加锁
func (c *Controller) RegisterTarget(name string, target fabric.Target) {
	c.targets[name] = target
}

// NewStream 为一条新的 fabric 入站流创建处理器
//
// 这是宿主 fabric 循环应当在观察到一个新 sourceId 时调用的入口：返回的
// *httpsource.SourceInputStream 随后以 HandleBegin/HandleData/HandleEnd
// 消费该 sourceId 上的帧
func (c *Controller) NewStream() *httpsource.SourceInputStream {
	return c.factory.NewStream()
}

// Start 启动管理端 HTTP server（metrics、日志级别、reload 路由）
func (c *Controller) Start() error {
	c.setupServer()

	if c.svr != nil {
		go func() {
			defer rescue.HandleCrash()
			err := c.svr.ListenAndServe()
			if err != nil && !errors.Is(err, io.EOF) {
				logger.Errorf("failed to start server: %v", err)
			}
		}()
	}

	logger.Infof("nukleus-http controller started (version=%s git=%s)", c.buildInfo.Version, c.buildInfo.GitHash)
	return nil
}

func (c *Controller) setupServer() {
	if c.svr == nil {
		return
	}

	c.svr.RegisterGetRoute("/metrics", func(w http.ResponseWriter, r *http.Request) {
		recordUptime()
		buildInfoGauge.WithLabelValues(c.buildInfo.Version, c.buildInfo.GitHash, c.buildInfo.Time).Set(1)
		promhttp.Handler().ServeHTTP(w, r)
	})

	c.svr.RegisterPostRoute("/-/logger", func(w http.ResponseWriter, r *http.Request) {
		logger.SetLoggerLevel(r.FormValue("level"))
		writeJSON(w, statusResponse{Status: "success"})
	})

	c.svr.RegisterPostRoute("/-/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := sigs.SelfReload(); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
		}
	})

	c.svr.RegisterGetRoute("/routes", func(w http.ResponseWriter, r *http.Request) {
		c.mut.RLock()
		routes := c.routes.All()
		c.mut.RUnlock()

		summaries := make([]routeSummary, 0, len(routes))
		for _, rt := range routes {
			summaries = append(summaries, routeSummary{
				Name:      rt.Name,
				SourceRef: rt.SourceRef,
				Target:    rt.Target,
				TargetRef: rt.TargetRef,
			})
		}
		writeJSON(w, summaries)
	})
}

// statusResponse 是管理端写操作的统一应答体
type statusResponse struct {
	Status string `json:"status"`
}

// routeSummary 是 /routes 端点对外展示的只读快照 不暴露 Matchers 的内部实现
type routeSummary struct {
	Name      string `json:"name"`
	SourceRef uint64 `json:"sourceRef"`
	Target    string `json:"target"`
	TargetRef uint64 `json:"targetRef"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("failed to encode response: %v", err)
	}
}

// Reload 重新加载路由表；配置中的其余项（slab 容量等）在本进程生命周期内
// 保持不变，因为替换它们会影响已在途的 SourceInputStream
func (c *Controller) Reload(conf *confengine.Config) error {
	routes, err := loadRoutes(conf, c.cfg.routesKey())
	if err != nil {
		return err
	}

	c.mut.Lock()
	c.routes = routes
	c.mut.Unlock()

	c.factory.ReloadRoutes(routes)
	return nil
}

// Stop 停止 Controller
func (c *Controller) Stop() {
	c.cancel()
}
