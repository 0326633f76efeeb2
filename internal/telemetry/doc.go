// Copyright 2025-2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 apiflow 提供集中式的 TracerProvider 和 MeterProvider 配置，
// 并向上游请求注入 W3C trace context。
//
// Metrics 以 OTel instrument 记录工具调用指标，方法集与 Prometheus
// collector 一致，调用引擎可同时写入两者。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
