package rxstream

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetLogger 替换包级日志器，nil恢复为空日志器
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l.Named("rxstream"))
}

// Logger 返回包级日志器
func Logger() *zap.Logger {
	return logger.Load()
}
