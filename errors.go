package netlib

import "errors"

var (
	// ErrPlatformNotSupported 当前平台没有可用的多路复用器（需要 epoll 或 kqueue）
	ErrPlatformNotSupported = errors.New("netlib: platform not supported (requires linux or darwin)")

	// ErrUnknownStrategy 策略名不是 immediate / pooled / reactor 之一
	ErrUnknownStrategy = errors.New("netlib: unknown strategy")

	// ErrInvalidArgument 参数非法
	ErrInvalidArgument = errors.New("netlib: invalid argument")
)
