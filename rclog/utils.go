package rclog

import (
	"fmt"

	"github.com/crewjam/rfc5424"
)

// KV builds a structured-data field for a log record.
func KV(name string, value interface{}) rfc5424.SDParam {
	if s, ok := value.(string); ok {
		return rfc5424.SDParam{Name: name, Value: s}
	}
	return rfc5424.SDParam{Name: name, Value: fmt.Sprintf("%v", value)}
}

// KVErr is shorthand for KV("error", err); a nil err still renders a field
// so callers can log "attempt failed" lines without a branch.
func KVErr(err error) rfc5424.SDParam {
	if err == nil {
		return KV("error", "<nil>")
	}
	return KV("error", err.Error())
}
