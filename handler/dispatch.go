package handler

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/legamerdc/netlib/internal/logger"
	"github.com/legamerdc/netlib/protocol"
)

var (
	ErrProcessorNotFound = errors.New("handler: processor not found")
	ErrNilProcessor      = errors.New("handler: nil processor")
)

// ProcessorFunc 处理去掉头部之后的 payload
type ProcessorFunc func(payload []byte) []byte

// DispatchHandler 按请求头中的服务 id 路由到已登记的处理函数。
// 未知 id 与残缺头部只记录日志，不产生响应。
type DispatchHandler struct {
	mu         sync.RWMutex
	processors map[string]ProcessorFunc
	dropped    atomic.Uint64
	log        *slog.Logger
}

func NewDispatchHandler() *DispatchHandler {
	return &DispatchHandler{
		processors: make(map[string]ProcessorFunc),
		log:        logger.Logger("dispatch"),
	}
}

// SetLogger 替换日志输出
func (d *DispatchHandler) SetLogger(l *slog.Logger) {
	if l != nil {
		d.log = l
	}
}

// AddProcessor 登记处理函数，同 id 后者覆盖前者
func (d *DispatchHandler) AddProcessor(id string, fn ProcessorFunc) error {
	if len(id) > protocol.MaxIDLength {
		return protocol.ErrIDTooLong
	}
	if fn == nil {
		return ErrNilProcessor
	}
	d.mu.Lock()
	d.processors[id] = fn
	d.mu.Unlock()
	return nil
}

func (d *DispatchHandler) DeleteProcessor(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.processors[id]; !ok {
		d.log.Error("delete unknown processor", "id", id)
		return ErrProcessorNotFound
	}
	delete(d.processors, id)
	return nil
}

// Processors 返回已登记的 id，按字典序
func (d *DispatchHandler) Processors() []string {
	d.mu.RLock()
	ids := make([]string, 0, len(d.processors))
	for id := range d.processors {
		ids = append(ids, id)
	}
	d.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Dropped 返回被丢弃的请求数
func (d *DispatchHandler) Dropped() uint64 { return d.dropped.Load() }

func (d *DispatchHandler) Process(request []byte) []byte {
	id, payload, err := protocol.SplitRequest(request)
	if err != nil {
		d.dropped.Add(1)
		d.log.Error("malformed request", "len", len(request), "err", err)
		return nil
	}
	d.mu.RLock()
	fn, ok := d.processors[id]
	d.mu.RUnlock()
	if !ok {
		d.dropped.Add(1)
		d.log.Error("unknown service id", "id", id)
		return nil
	}
	return fn(payload)
}

// BuildHeader 生成调用方需要前置在 payload 前的 [L][id]
func BuildHeader(id string) ([]byte, error) {
	return protocol.BuildHeader(id)
}
