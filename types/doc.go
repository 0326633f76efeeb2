// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package types 提供 apiflow 各层共享的类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包。openapi、request、response、
invoke 与命令行入口通过这里的类型交换工具定义、调用结果与错误，避免循环依赖。

# 核心类型

  - ToolSchema：工具定义（name + description + JSON Schema parameters）
  - ToolResult：一次调用的结果：状态码、JSON 或文本、告警、是否命中缓存
  - Error / ErrorCode：结构化错误：错误码、HTTP 状态、Retryable、上游响应片段
  - JSONSchema：JSON Schema 节点与构建器（NewObjectSchema 等）

# 错误工具链

  - NewError / Errorf 创建错误，WithCause / WithHTTPStatus / WithBody / WithTool 补充上下文
  - WrapError 把任意错误归入指定错误码，已是 *Error 时保持原错误码
  - AsError / IsErrorCode / IsRetryable / GetErrorCode 用于判断
*/
package types
