// MockUpstream 是上游 HTTP API 的测试模拟实现。
//
// 支持按路由预置响应、延迟与请求记录，基于 httptest.Server。
package mocks

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// --- MockUpstream 结构 ---

// Response 预置的上游响应
type Response struct {
	Status      int
	ContentType string
	Body        string
	Header      http.Header
	Delay       time.Duration
}

// RecordedRequest 记录单次上游请求
type RecordedRequest struct {
	Method string
	Path   string
	// RawPath 保留请求行中的原始编码路径
	RawPath string
	Query   url.Values
	Header  http.Header
	Body    []byte
}

// MockUpstream 是上游 API 的模拟实现
type MockUpstream struct {
	mu sync.RWMutex

	// 路由表，键为 "METHOD /path"
	routes          map[string]Response
	defaultResponse Response

	// 请求记录
	requests []RecordedRequest

	server *httptest.Server
}

// --- 构造函数和 Builder 方法 ---

// NewMockUpstream 创建并启动 MockUpstream，调用方负责 Close
func NewMockUpstream() *MockUpstream {
	m := &MockUpstream{
		routes: make(map[string]Response),
		defaultResponse: Response{
			Status:      http.StatusOK,
			ContentType: "application/json",
			Body:        `{}`,
		},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serveHTTP))
	return m
}

// WithResponse 为指定方法与路径预置响应
func (m *MockUpstream) WithResponse(method, path string, resp Response) *MockUpstream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	m.routes[method+" "+path] = resp
	return m
}

// WithJSON 为指定方法与路径预置 JSON 响应
func (m *MockUpstream) WithJSON(method, path string, status int, body string) *MockUpstream {
	return m.WithResponse(method, path, Response{Status: status, ContentType: "application/json", Body: body})
}

// WithDefaultResponse 设置未匹配路由时的响应
func (m *MockUpstream) WithDefaultResponse(resp Response) *MockUpstream {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResponse = resp
	return m
}

// --- 服务 ---

// URL 返回服务地址
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Client 返回访问服务的 HTTP 客户端
func (m *MockUpstream) Client() *http.Client {
	return m.server.Client()
}

// Close 关闭服务
func (m *MockUpstream) Close() {
	m.server.Close()
}

func (m *MockUpstream) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		RawPath: r.URL.EscapedPath(),
		Query:   r.URL.Query(),
		Header:  r.Header.Clone(),
		Body:    body,
	})
	resp, ok := m.routes[r.Method+" "+r.URL.Path]
	if !ok {
		resp = m.defaultResponse
	}
	m.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.Status)
	_, _ = io.WriteString(w, resp.Body)
}

// --- 调用记录 ---

// GetRequests 返回所有请求记录
func (m *MockUpstream) GetRequests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// GetRequestCount 返回请求次数
func (m *MockUpstream) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// GetLastRequest 返回最后一次请求
func (m *MockUpstream) GetLastRequest() *RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return nil
	}
	r := m.requests[len(m.requests)-1]
	return &r
}

// Reset 清空请求记录
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// --- multipart 解析 ---

// Part 是 multipart 请求中的一个部分
type Part struct {
	Name        string
	FileName    string
	ContentType string
	Data        []byte
}

// Parts 按顺序解析 multipart/form-data 请求体
func (r RecordedRequest) Parts() ([]Part, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, http.ErrNotMultipart
	}
	reader := multipart.NewReader(bytes.NewReader(r.Body), params["boundary"])
	var parts []Part
	for {
		p, err := reader.NextPart()
		if err == io.EOF {
			return parts, nil
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, Part{
			Name:        p.FormName(),
			FileName:    p.FileName(),
			ContentType: p.Header.Get("Content-Type"),
			Data:        data,
		})
	}
}
