// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package request 根据工具定义、已校验参数与认证结果构建 HTTP 请求。

构建过程不修改工具定义与参数。文件参数在构建时通过 os.Stat 检查，
在请求体被传输层读取时才打开，multipart 请求体通过 io.Pipe 以固定
32 KiB 缓冲区流式写出，取消请求会关闭管道并释放文件句柄。

# 核心接口/类型

  - Builder：请求构建器，持有默认请求头与 User-Agent
  - Spec：构建完成但未发送的请求（方法、URL、有序请求头、请求体）
  - Headers：有序、大小写不敏感的请求头列表
  - Body / Part / FileSource：请求体及其 multipart 部分与文件来源

# 主要能力

  - 路径替换：{token} 使用 url.PathEscape 编码
  - 查询参数：数组按 explode 重复键或按 style 拼接，deepObject 展开为 name[key]
  - 请求体：JSON、multipart、urlencoded 表单与原始字节/文件
  - 指纹：Fingerprint 对完整请求（含认证）计算 SHA-256，用于缓存键
*/
package request
