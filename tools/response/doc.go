/*
Package response 将上游 HTTP 响应映射为工具结果或类型化错误。

2xx 响应按内容类型解析为 JSON 或文本，并按声明的响应 Schema 做尽力校验，
不匹配只产生告警。非 2xx 响应映射为 UPSTREAM_API 错误，携带状态码、
提取的错误消息与按 UTF-8 边界截断的响应片段。传输失败映射为 NETWORK_ERROR，
不包含可能携带凭证的请求 URL。
*/
package response
