// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package openapi 将 OpenAPI 3.x 文档编译为可调用的工具目录。

该包负责文档加载、组件 Schema 解析（支持循环引用）、Operation 到工具的
编译、上传编码检测以及参数校验。编译结果 Catalog 构建完成后不可变，
可被任意数量的 goroutine 并发读取。

# 核心接口/类型

  - Document：解析后的文档，保留原始属性声明顺序
  - Fetcher：按来源（URL 或本地文件）加载并缓存文档
  - Graph / Node：组件 Schema 的图结构，递归引用绑定为同一节点
  - Operation / Parameter / RequestBody：解析后的 HTTP 操作
  - ToolDefinition：编译后的工具，含输入 Schema、参数绑定与上传计划
  - UploadPlan：请求体编码选择（multipart / json / form / raw）
  - Catalog：工具目录，按名称查找

# 主要能力

  - 文档加载：JSON 与 YAML，拒绝非 3.x 版本与外部引用
  - 循环 Schema：命名节点输出到 $defs，通过 $ref 引用，保证输出有限
  - 参数合并：path / query / header / body 按可配置优先级合并，冲突记录并告警
  - 工具命名：operationId 优先，缺省时由方法与路径生成，超长名称追加哈希
  - 文件上传：binary 属性改写为本地文件路径（uri-reference）
  - 参数校验：基于 JSON Schema 2020-12 校验调用参数，响应校验仅产生告警
*/
package openapi
