package netlib

import (
	"fmt"
	"strings"
)

// Strategy 为连接处理策略名
type Strategy string

const (
	// StrategyImmediate 接收 goroutine 串行服务每个连接
	StrategyImmediate Strategy = "immediate"
	// StrategyPooled 每个连接作为任务交给线程池
	StrategyPooled Strategy = "pooled"
	// StrategyReactor 单事件循环非阻塞服务全部连接
	StrategyReactor Strategy = "reactor"
)

// Strategies 返回全部策略名
func Strategies() []Strategy {
	return []Strategy{StrategyImmediate, StrategyPooled, StrategyReactor}
}

// ParseStrategy 解析策略名，忽略大小写与首尾空白
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StrategyImmediate, StrategyPooled, StrategyReactor:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

func (s Strategy) String() string { return string(s) }

// UnmarshalText 使 yaml 与 flag 解析经过 ParseStrategy
func (s *Strategy) UnmarshalText(b []byte) error {
	st, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
