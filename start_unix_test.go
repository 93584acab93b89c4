//go:build linux || darwin

package netlib

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/legamerdc/netlib/client"
	"github.com/legamerdc/netlib/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewServer_Strategies 测试三种策略经同一入口提供相同的服务
func TestNewServer_Strategies(t *testing.T) {
	for _, strategy := range Strategies() {
		t.Run(strategy.String(), func(t *testing.T) {
			d := NewDispatchHandler()
			d.SetLogger(logger.Discard())
			require.NoError(t, d.AddProcessor("upper", func(p []byte) []byte {
				return []byte(strings.ToUpper(string(p)))
			}))

			cfg := DefaultConfig()
			cfg.Strategy = strategy
			cfg.Address = "127.0.0.1:0"
			cfg.Workers = 2
			reg := prometheus.NewRegistry()
			s, err := NewServer(cfg, d, WithRegisterer(reg), WithLogger(logger.Discard()))
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			errc := make(chan error, 1)
			go func() { errc <- s.Serve(ctx) }()

			c, err := client.Dial("tcp", s.Addr().String(), time.Second)
			require.NoError(t, err)
			resp, err := c.Call("upper", []byte("netlib"))
			require.NoError(t, err)
			assert.Equal(t, "NETLIB", string(resp))
			require.NoError(t, c.Close())

			cancel()
			select {
			case err := <-errc:
				require.NoError(t, err)
			case <-time.After(3 * time.Second):
				t.Fatal("Serve did not return")
			}
			n, err := testutil.GatherAndCount(reg, "netlib_requests_total")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}
