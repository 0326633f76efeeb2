// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 database 提供审计存储所用的 GORM 连接与连接池管理。

# 概述

Open 按驱动名（sqlite、postgres、mysql）选择 GORM 方言并打开连接，
随后交由 PoolManager 管理连接上限、空闲回收与后台健康检查。
SQLite 只有一个写者，连接数被固定为 1。健康检查通过后经 OnStats
把连接池统计交给指标系统。

# 核心类型

  - Config：驱动、DSN 与连接池配置
  - PoolConfig：连接池配置，Validate 校验取值范围
  - PoolManager：DB / Ping / Stats / Transact / Close

# 事务

Transact 在事务中执行回调；Transient 判定为瞬时的错误（死锁、序列化失败、
SQLITE_BUSY、断开的连接等）按指数退避重试，其余错误立即返回。
*/
package database
