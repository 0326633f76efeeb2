// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package auth 将上游 API 的凭证渲染为请求头或查询参数。

凭证在引擎构建时渲染一次，配置错误（模板占位符数量不为一、缺少密钥、
非法头名称等）在发送任何请求之前以 AUTH_ERROR 返回。

# 核心接口/类型

  - Kind：凭证类型：none / bearer / basic / api_key_header / api_key_query / custom_header
  - Config：凭证配置（名称、模板、用户名）
  - Secret：密钥值，String / GoString / JSON / Text 输出均为脱敏形式
  - Pair：渲染结果，String 输出不含取值
  - Renderer：预渲染的不可变凭证

# 主要能力

  - 模板替换：模板中 {value} 必须恰好出现一次
  - Basic 认证：username:password 或 Config.Username + 密码
  - 头校验：使用 httpguts 校验头名称与取值
*/
package auth
