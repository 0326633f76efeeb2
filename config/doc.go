// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

// Package config 提供 apiflow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（前缀 APIFLOW）的顺序叠加。
// 变量名由各层 env 标签拼接，例如 APIFLOW_AUTH_SECRET、APIFLOW_SPEC_EXCLUDE_TAGS；
// 列表与 map 以逗号分隔，map 元素写作 key=value。
//
// Validate 一次返回全部问题，每个问题都是 *FieldError，可用 errors.As 取出。
package config
