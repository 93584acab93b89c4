// Package client 为分发协议的阻塞式客户端：一次请求对应一次响应
package client

import (
	"net"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/legamerdc/netlib/codec"
	"github.com/legamerdc/netlib/protocol"
)

type Client struct {
	conn net.Conn
	io   *codec.ConnIO
	mu   sync.Mutex
}

// Dial 建立连接；timeout 同时作为连接、每次读与每次写的时限，<= 0 表示不限
func Dial(network, address string, timeout time.Duration) (*Client, error) {
	nc, err := net.DialTimeout(network, address, timeout)
	if err != nil {
		return nil, err
	}
	return New(nc, timeout), nil
}

// New 在已有连接上创建客户端
func New(nc net.Conn, timeout time.Duration) *Client {
	return &Client{conn: nc, io: codec.NewConnIO(nc, timeout, timeout)}
}

// Send 发送一条 [L][id][payload] 请求
func (c *Client) Send(id string, payload []byte) error {
	req, err := protocol.EncodeRequest(id, payload)
	if err != nil {
		return err
	}
	return c.SendRaw(req)
}

// SendRaw 原样发送一条消息
func (c *Client) SendRaw(msg []byte) error {
	_, err := c.io.WriteMessage(msg)
	return err
}

// Recv 读取一条响应
func (c *Client) Recv() ([]byte, error) {
	return c.io.ReadMessage()
}

// Call 发送请求并等待响应，并发调用按顺序串行
func (c *Client) Call(id string, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Send(id, payload); err != nil {
		return nil, err
	}
	return c.Recv()
}

// CallCompressed 与 Call 相同，请求与响应经 zstd 压缩
func (c *Client) CallCompressed(id string, payload []byte) ([]byte, error) {
	resp, err := c.Call(id, protocol.Compress(payload))
	if err != nil {
		return nil, err
	}
	return protocol.Decompress(resp)
}

// CallCBOR 以 CBOR 编码请求并解码响应
func CallCBOR[Req, Resp any](c *Client, id string, req Req) (Resp, error) {
	var resp Resp
	payload, err := cbor.Marshal(req)
	if err != nil {
		return resp, err
	}
	out, err := c.Call(id, payload)
	if err != nil {
		return resp, err
	}
	err = cbor.Unmarshal(out, &resp)
	return resp, err
}

func (c *Client) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *Client) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Client) Close() error { return c.conn.Close() }
