// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package invoke 是工具调用入口：按名称查找已编译工具，校验参数，
构建并发送上游请求，再将响应映射为 ToolResult 或类型化错误。

Engine 只读共享 Catalog，所有调用相互独立；限流器、响应缓存与
HTTP 连接池是调用之间唯一共享的状态。Call 返回的错误总是 *types.Error。

# 核心接口/类型

  - Engine：调用引擎，Call / CallJSON / CallBatch
  - Option：函数式选项（HTTP 客户端、认证、限流、缓存、指标、审计）
  - ResponseCache / Recorder / Journal：缓存、指标与审计的最小接口
  - Request / Outcome：批量调用的输入与结果

# 调用流程

 1. 生成 uuid 调用 ID 并写入 context，开启 OpenTelemetry span
 2. 查找工具（TOOL_NOT_FOUND），校验参数（ARGUMENT_VALIDATION）
 3. 令牌桶限流等待，context 先结束则返回 RATE_LIMITED
 4. 渲染认证并构建请求；无请求体的 GET 可走 Redis 缓存，
    相同指纹的并发请求经 singleflight 合并为一次上游调用
 5. 注入 trace 上下文，发送请求，映射响应
 6. 记录 Prometheus 指标、审计条目与结构化日志
*/
package invoke
