// Package codec 提供面向消息的字节读写能力
//
// 一条消息对应底层的一次读/一次写（上限 MaxMessageSize），
// 不做跨多次读取的重组。数值一律使用网络字节序。
package codec

import "errors"

// MaxMessageSize 单条消息的读取缓冲上限
const MaxMessageSize = 1 << 20

var (
	// ErrShortBuffer 内存缓冲剩余字节不足
	ErrShortBuffer = errors.New("codec: short buffer")
	// ErrTimeout 读写超过设定时限
	ErrTimeout = errors.New("codec: i/o timeout")
	// ErrConnReset 对端重置连接
	ErrConnReset = errors.New("codec: connection reset by peer")
	// ErrWouldBlock 非阻塞描述符重试耗尽
	ErrWouldBlock = errors.New("codec: operation would block")
	// ErrShortWrite 写出字节数不足
	ErrShortWrite = errors.New("codec: short write")
	// ErrStringTooLong 字符串超过长度前缀可表达的范围
	ErrStringTooLong = errors.New("codec: string too long")
)

// ByteIO 为消息级字节读写能力
type ByteIO interface {
	// ReadBytes 读满 p
	ReadBytes(p []byte) (int, error)
	// WriteBytes 写出整个 p
	WriteBytes(p []byte) (int, error)
	// ReadMessage 读取一条消息
	ReadMessage() ([]byte, error)
	// WriteMessage 写出一条消息
	WriteMessage(p []byte) (int, error)
}
