// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 文件、文档与异步断言的辅助函数
//
// 使用方法:
//
//	path := testutil.TempFile(t, "report.pdf", []byte("%PDF"))
//	spec := testutil.SpecFile(t, fixtures.PetStoreJSON)
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 5*time.Second)
//
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// pollInterval 异步断言的轮询间隔
const pollInterval = 10 * time.Millisecond

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 📄 文件辅助
// =============================================================================

// TempFile 在测试临时目录中写入文件并返回其绝对路径
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// SpecFile 把 OpenAPI 文档写入临时文件；以 '{' 开头的按 JSON 命名，其余按 YAML
func SpecFile(t *testing.T, document string) string {
	t.Helper()
	name := "openapi.yaml"
	if strings.HasPrefix(strings.TrimSpace(document), "{") {
		name = "openapi.json"
	}
	return TempFile(t, name, []byte(document))
}

// MissingFile 返回临时目录中一个不存在的路径
func MissingFile(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertEventuallyTrue 轮询直到条件成立或超时
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(pollInterval)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// AssertNoError 断言无错误
func AssertNoError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("unexpected error: %v - %v", err, msgAndArgs)
		}
		t.Fatalf("unexpected error: %v", err)
	}
}

// =============================================================================
// 🔧 JSON 辅助
// =============================================================================

// MustJSON 将值序列化为 JSON 参数文本
func MustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	return data
}
