package netlib

import "github.com/legamerdc/netlib/handler"

// RequestHandler 为用户处理接口：一条请求进，一条响应出，空响应表示不回写
type RequestHandler = handler.RequestHandler

// HandlerFunc 将普通函数适配为 RequestHandler
type HandlerFunc = handler.Func

// DispatchHandler 按服务 id 将请求路由到处理函数
type DispatchHandler = handler.DispatchHandler

func NewDispatchHandler() *DispatchHandler { return handler.NewDispatchHandler() }
