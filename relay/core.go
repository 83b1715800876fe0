package relay

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// channelCore is a zapcore.Core whose Write pushes records onto a Channel
// instead of encoding them. Installing it as a unit's logger core is the
// sink override: everything the unit logs ends up on the channel and is
// re-emitted by the owning pool's relay.
type channelCore struct {
	zapcore.LevelEnabler
	ch     *Channel
	fields []zapcore.Field
}

// NewCore returns a Core that enqueues every enabled record onto ch.
// enab filters by level before anything is sent, so the pool's configured
// verbosity is applied at the producer side.
func NewCore(ch *Channel, enab zapcore.LevelEnabler) zapcore.Core {
	return &channelCore{LevelEnabler: enab, ch: ch}
}

// NewLogger builds the logger handed to each execution unit: a *zap.Logger
// backed by a channel core, with fields identifying the producer.
func NewLogger(ch *Channel, enab zapcore.LevelEnabler, fields ...zapcore.Field) *zap.Logger {
	return zap.New(NewCore(ch, enab)).With(fields...)
}

func (c *channelCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &channelCore{
		LevelEnabler: c.LevelEnabler,
		ch:           c.ch,
		fields:       make([]zapcore.Field, 0, len(c.fields)+len(fields)),
	}
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return clone
}

func (c *channelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *channelCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)
	c.ch.Send(Record{
		Time:    ent.Time,
		Level:   ent.Level,
		Message: ent.Message,
		Fields:  all,
	})
	return nil
}

func (c *channelCore) Sync() error { return nil }
