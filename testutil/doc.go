// Copyright 2026 apiflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 apiflow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，自动注册 Cleanup 防止泄漏
  - 文件辅助: TempFile / SpecFile / MissingFile，写入 t.TempDir 随测试清理
  - 异步断言: AssertEventuallyTrue，按固定间隔轮询直到条件满足或超时
  - 其他: AssertNoError / MustJSON

# 子包

  - testutil/mocks: MockUpstream，基于 httptest 的上游 API 模拟，
    支持预置响应、延迟注入、请求记录与 multipart 解析
  - testutil/fixtures: OpenAPI 文档样例，覆盖组件引用、递归 Schema、
    文件上传、参数冲突与重复命名等场景

# 使用示例

	upstream := mocks.NewMockUpstream().WithJSON("GET", "/pets/1", 200, `{"id":1}`)
	defer upstream.Close()
	doc, err := openapi.Load(ctx, []byte(fixtures.PetStoreJSON), openapi.LoadOptions{})
	testutil.AssertNoError(t, err)
*/
package testutil
