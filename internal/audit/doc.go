// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 audit 为每次工具调用记录一条审计条目，并异步写入存储后端。

# 概述

Logger 维护一个有界队列与若干后台 worker，按批次或定时刷新写入所有 Backend。
队列满时丢弃条目并告警，调用路径永远不会因审计而阻塞。
条目只包含工具名、方法、不含查询串的目标地址、状态码与错误码，
不记录参数值与请求头，避免泄露凭据。

# 核心接口/类型

  - Entry：审计条目（同时也是 GORM 模型）
  - Backend：存储后端接口（Write/Query/Close）
  - Logger：异步批量写入器
  - MemoryBackend：内存环形存储，用于开发与测试
  - GormBackend：基于 GORM 的 SQL 存储（sqlite/postgres/mysql）
*/
package audit
