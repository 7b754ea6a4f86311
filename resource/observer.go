package resource

import (
	"go.uber.org/zap"
)

type logObserver struct {
	logger *zap.Logger
}

// NewLogObserver returns an Observer that writes every event to l at debug
// level. A nil l yields a no-op logger.
func NewLogObserver(l *zap.Logger) Observer {
	if l == nil {
		l = zap.NewNop()
	}
	return &logObserver{logger: l}
}

func (o *logObserver) OnResourceEvent(e Event) {
	if ce := o.logger.Check(zap.DebugLevel, "resource "+e.Type.String()); ce != nil {
		ce.Write(
			zap.Uint32("handle", uint32(e.Handle)),
			zap.Uint("refs", e.Refs),
			zap.String("type", e.Type.String()),
		)
	}
}
