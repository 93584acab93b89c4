// Package protocol 定义分发层的请求信封：
//
//	[L:1B][id:L 字节][payload...]
//
// L 取值 0..255，payload 由应用自行定义。
package protocol

import "errors"

// MaxIDLength 服务 id 的最大长度
const MaxIDLength = 255

var (
	// ErrIDTooLong 服务 id 超过一个长度字节可表达的范围
	ErrIDTooLong = errors.New("protocol: service id longer than 255 bytes")
	// ErrShortHeader 请求不足以容纳声明的 id
	ErrShortHeader = errors.New("protocol: header too short")
)

// BuildHeader 返回 [L][id] 前缀
func BuildHeader(id string) ([]byte, error) {
	return AppendHeader(make([]byte, 0, 1+len(id)), id)
}

// AppendHeader 将 [L][id] 追加到 dst 末尾
func AppendHeader(dst []byte, id string) ([]byte, error) {
	if len(id) > MaxIDLength {
		return dst, ErrIDTooLong
	}
	dst = append(dst, byte(len(id)))
	return append(dst, id...), nil
}

// ParseHeader 解析 id，返回已消费字节数
func ParseHeader(req []byte) (id string, consumed int, _ error) {
	if len(req) < 1 {
		return "", 0, ErrShortHeader
	}
	l := int(req[0])
	if len(req) < 1+l {
		return "", 0, ErrShortHeader
	}
	return string(req[1 : 1+l]), 1 + l, nil
}

// SplitRequest 拆分为 id 与 payload，payload 与 req 共享底层数组
func SplitRequest(req []byte) (id string, payload []byte, _ error) {
	id, n, err := ParseHeader(req)
	if err != nil {
		return "", nil, err
	}
	return id, req[n:], nil
}
