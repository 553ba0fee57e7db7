package rxstream

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Ticker 由时钟驱动的外部定时事件流，用作计时类操作符的目标流。
// 操作符本身不持有定时器。
type Ticker struct {
	*Publisher[time.Time]
	ticker *clock.Ticker
	stop   chan struct{}
	once   sync.Once
}

// NewTicker 创建按interval推送时间的事件流，clk为nil时使用真实时钟
func NewTicker(clk clock.Clock, interval time.Duration, options ...Option) *Ticker {
	if clk == nil {
		clk = clock.New()
	}
	t := &Ticker{
		Publisher: NewPublisher[time.Time](options...),
		ticker:    clk.Ticker(interval),
		stop:      make(chan struct{}),
	}
	t.config.Logger.Debug("ticker started", zap.Duration("interval", interval))
	go t.loop()
	return t
}

func (t *Ticker) loop() {
	for {
		select {
		case <-t.stop:
			return
		case now := <-t.ticker.C:
			t.Publish(now)
		}
	}
}

// Stop 停止计时并结束事件流，可在订阅者回调内调用
func (t *Ticker) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.stop)
		t.Publisher.Dispose()
	})
}

// Dispose 等同于Stop
func (t *Ticker) Dispose() {
	t.Stop()
}
