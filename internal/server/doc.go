// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 server 提供管理端 HTTP 监听，暴露 Prometheus 指标、存活与就绪探针
以及工具目录。stdio 被 MCP 协议占用，这是进程唯一的 HTTP 入口。

# 概述

Manager 封装 net/http.Server：Start 同步绑定端口后在后台服务，
Shutdown 等待进行中的请求，异常退出经 Errors 通道上报。
NewHandler 构建管理端路由：

  - GET /metrics：Prometheus 指标
  - GET /healthz：存活探针
  - GET /readyz：逐项执行依赖检查（目录、Redis、审计库），任一失败返回 503
  - GET /tools：编译后的工具目录 JSON

# 中间件

Chain 组合中间件；Recovery 把 panic 转为 500，AccessLog 以 Debug 级别
记录除 /metrics 外的请求。
*/
package server
