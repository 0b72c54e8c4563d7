package rclog

import "github.com/crewjam/rfc5424"

// KVLogger decorates a *Logger with a fixed set of structured-data fields
// attached to every record it emits — used by the runner and supervisor to
// stamp every line for a service with its name without threading it through
// every call site.
type KVLogger struct {
	*Logger
	sds []rfc5424.SDParam
}

func NewKVLogger(l *Logger, sds ...rfc5424.SDParam) *KVLogger {
	return &KVLogger{Logger: l, sds: sds}
}

func (kvl *KVLogger) Debug(msg string, sds ...rfc5424.SDParam) error {
	return kvl.Logger.Debug(msg, append(append([]rfc5424.SDParam{}, kvl.sds...), sds...)...)
}

func (kvl *KVLogger) Info(msg string, sds ...rfc5424.SDParam) error {
	return kvl.Logger.Info(msg, append(append([]rfc5424.SDParam{}, kvl.sds...), sds...)...)
}

func (kvl *KVLogger) Warn(msg string, sds ...rfc5424.SDParam) error {
	return kvl.Logger.Warn(msg, append(append([]rfc5424.SDParam{}, kvl.sds...), sds...)...)
}

func (kvl *KVLogger) Error(msg string, sds ...rfc5424.SDParam) error {
	return kvl.Logger.Error(msg, append(append([]rfc5424.SDParam{}, kvl.sds...), sds...)...)
}

// AddKV attaches additional fields that will be stamped on every future
// record from this logger.
func (kvl *KVLogger) AddKV(sds ...rfc5424.SDParam) {
	kvl.sds = append(kvl.sds, sds...)
}
