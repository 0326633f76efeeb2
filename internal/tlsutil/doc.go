// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 tlsutil 为上游 HTTP 客户端、规范拉取器与 Redis 连接提供统一的 TLS 加固配置。

# 概述

所有出站连接统一使用 TLS 1.2+ 与 AEAD 密码套件。
ClientConfig 允许追加自定义 CA、覆盖 SNI 与指定代理。

# 核心接口/类型

  - TLSOptions / ClientTLS：加固的 *tls.Config，Redis 连接也使用它
  - ClientConfig：上游客户端配置（超时、CA 文件、代理、连接池）
  - NewHTTPClient：按配置构建 *http.Client
*/
package tlsutil
