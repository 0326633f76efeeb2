// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
apiflow 将 OpenAPI 3.x 文档编译为可调用工具，并通过 MCP stdio 协议或命令行暴露。

# 命令

  - serve：MCP stdio 服务；启用 metrics 时另起管理端口（/metrics、/healthz、/readyz、/tools）
  - list：以 JSON 打印工具目录，--full 附带 API 标题与版本
  - call：调用单个工具：apiflow call <tool> '<json>'，参数为 - 时从 stdin 读取
  - version：显示版本信息

# 配置

配置按 默认值 → YAML 文件（--config）→ APIFLOW_* 环境变量 → 命令行参数 的顺序覆盖。
认证密钥通过 APIFLOW_AUTH_SECRET 提供，OPENAPI_MCP_HEADERS 可以 JSON 对象形式
追加固定请求头。日志默认写入 stderr，stdout 保留给 MCP 协议。
*/
package main
