// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
上游 HTTP、工具调用、缓存与审计数据库四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标。指标经 promauto
注册到调用方传入的 Registerer；NewRegistry 另外带上 Go 运行时与进程指标，
由管理端口的 /metrics 暴露。所有指标按 namespace 隔离。

# 核心接口/类型

  - Collector：指标收集器
  - NewRegistry：带运行时指标的独立 Registry

# 主要能力

  - RecordToolCall：按工具与结果（ok 或错误码）计数并记录耗时
  - RecordHTTPRequest：记录上游请求的状态类别、耗时与报文大小
  - RecordRateLimitWait：记录限流等待时间
  - RecordCacheHit / RecordCacheMiss：响应缓存命中率
  - RecordDBConnections / RecordDBQuery：审计库连接池与写入耗时
*/
package metrics
