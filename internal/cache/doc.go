// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 cache 提供基于 Redis 的工具调用响应缓存。

# 概述

调用引擎把无请求体 GET 调用的成功结果以 JSON 写入 Redis，键由工具名与
请求指纹组成，指纹包含渲染后的凭据，因此不同凭据之间不会共享条目。
所有键自动加上 KeyPrefix，多个文档可共享同一 Redis 实例。

# 核心类型

  - Manager：连接生命周期、GetJSON/SetJSON 读写与后台健康检查
  - Config：地址、密码、键前缀、默认 TTL、单值上限、连接池与检查间隔

# 错误语义

  - ErrCacheMiss / IsCacheMiss：未命中，包括过期与无法解码的条目
  - ErrUnavailable：健康检查失败期间读写直接跳过 Redis，恢复后自动继续
  - ErrValueTooLarge：结果超过 MaxValueBytes，不写入
  - ErrClosed：Close 之后的任何操作
*/
package cache
