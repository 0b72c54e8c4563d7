// Package rclog implements the structured leveled logger shared by every
// binary and package in this module: the runlevel driver, the service
// runner, and the forked supervisor all log through a *Logger so that a
// single log stream (or a pair of them, service logs and manager logs)
// carries consistent RFC5424 structured records.
package rclog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
	FATAL
)

const (
	defaultDepth = 3

	defaultID   = `rc@1`
	maxAppname  = 48
	maxHostname = 255
)

var (
	ErrNotOpen      = errors.New("logger is not open")
	ErrInvalidLevel = errors.New("log level is invalid")
)

// Logger is a leveled, structured logger that fans each record out to every
// attached writer. The zero value is not usable; construct with New,
// NewFile, or NewDiscardLogger.
type Logger struct {
	mtx      sync.Mutex
	wtrs     []io.WriteCloser
	lvl      Level
	hot      bool
	hostname string
	appname  string
}

// New creates a logger writing to wtr at level INFO.
func New(wtr io.WriteCloser) (l *Logger) {
	l = &Logger{
		wtrs: []io.WriteCloser{wtr},
		lvl:  INFO,
		hot:  true,
	}
	l.guessHostnameAppname()
	return
}

// NewFile opens (or creates) f in append mode and returns a logger writing
// to it. Safe to call against an existing log file.
func NewFile(f string) (*Logger, error) {
	fout, err := os.OpenFile(f, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, err
	}
	return New(fout), nil
}

// NewDiscardLogger returns a logger that throws every record away; used by
// tests and by callers with logging disabled via config.
func NewDiscardLogger() *Logger {
	return New(discardCloser{})
}

func (l *Logger) guessHostnameAppname() {
	if h, err := os.Hostname(); err == nil {
		l.hostname = trimLength(maxHostname, h)
	}
	if args := os.Args; len(args) > 0 {
		exe := filepath.Base(args[0])
		if ext := filepath.Ext(exe); len(ext) > 0 && len(ext) < len(exe) {
			exe = strings.TrimSuffix(exe, ext)
		}
		l.appname = trimLength(maxAppname, exe)
	}
}

// SetAppname overrides the guessed application name, used by rc-supervise
// so health-check and respawn records are attributed to the supervised
// service rather than the supervisor binary.
func (l *Logger) SetAppname(name string) {
	l.mtx.Lock()
	l.appname = trimLength(maxAppname, name)
	l.mtx.Unlock()
}

// Close closes every writer the logger currently owns.
func (l *Logger) Close() (err error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.hot {
		return ErrNotOpen
	}
	l.hot = false
	for i := range l.wtrs {
		if cerr := l.wtrs[i].Close(); cerr != nil {
			err = cerr
		}
	}
	return
}

// AddWriter adds wtr as an additional sink for every subsequent record.
func (l *Logger) AddWriter(wtr io.WriteCloser) error {
	if wtr == nil {
		return errors.New("nil writer")
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.hot {
		return ErrNotOpen
	}
	l.wtrs = append(l.wtrs, wtr)
	return nil
}

// SetLevel changes the minimum level that gets written.
func (l *Logger) SetLevel(lvl Level) error {
	if !lvl.Valid() {
		return ErrInvalidLevel
	}
	l.mtx.Lock()
	l.lvl = lvl
	l.mtx.Unlock()
	return nil
}

// SetLevelString is a convenience wrapper for config values read as strings.
func (l *Logger) SetLevelString(s string) error {
	lvl, err := LevelFromString(s)
	if err != nil {
		return err
	}
	return l.SetLevel(lvl)
}

func (l *Logger) Debug(msg string, sds ...rfc5424.SDParam) error {
	return l.output(defaultDepth, DEBUG, msg, sds...)
}

func (l *Logger) Info(msg string, sds ...rfc5424.SDParam) error {
	return l.output(defaultDepth, INFO, msg, sds...)
}

func (l *Logger) Warn(msg string, sds ...rfc5424.SDParam) error {
	return l.output(defaultDepth, WARN, msg, sds...)
}

func (l *Logger) Error(msg string, sds ...rfc5424.SDParam) error {
	return l.output(defaultDepth, ERROR, msg, sds...)
}

func (l *Logger) Critical(msg string, sds ...rfc5424.SDParam) error {
	return l.output(defaultDepth, CRITICAL, msg, sds...)
}

// Fatal logs at FATAL and exits the process with code 1. Only cmd/ entry
// points should call this; library packages return errors instead.
func (l *Logger) Fatal(msg string, sds ...rfc5424.SDParam) {
	l.output(defaultDepth, FATAL, msg, sds...)
	os.Exit(1)
}

func (l *Logger) output(depth int, lvl Level, msg string, sds ...rfc5424.SDParam) (err error) {
	l.mtx.Lock()
	if !l.hot {
		l.mtx.Unlock()
		return ErrNotOpen
	}
	if lvl < l.lvl {
		l.mtx.Unlock()
		return
	}
	hostname, appname := l.hostname, l.appname
	l.mtx.Unlock()

	ts := time.Now()
	loc := callLoc(depth)
	b, merr := genRFCMessage(ts, lvl.priority(), hostname, appname, loc, msg, sds...)
	if merr != nil {
		return merr
	}
	line := strings.TrimRight(string(b), "\n\t\r")

	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.hot {
		return ErrNotOpen
	}
	for _, w := range l.wtrs {
		if _, werr := io.WriteString(w, line+"\n"); werr != nil {
			err = werr
		}
	}
	return
}

func genRFCMessage(ts time.Time, prio rfc5424.Priority, hostname, appname, msgid, msg string, sds ...rfc5424.SDParam) ([]byte, error) {
	m := rfc5424.Message{
		Priority:  prio,
		Timestamp: ts,
		Hostname:  trimLength(maxHostname, hostname),
		AppName:   trimLength(maxAppname, appname),
		MessageID: trimPathLength(32, msgid),
		Message:   []byte(msg),
	}
	if len(sds) > 0 {
		m.StructuredData = []rfc5424.StructuredData{{ID: defaultID, Parameters: sds}}
	}
	return m.MarshalBinary()
}

// Write implements io.Writer so a *Logger can be handed to code that wants
// a plain writer (e.g. as the stderr/stdout sink captured from a
// supervised daemon).
func (l *Logger) Write(b []byte) (int, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if !l.hot {
		return 0, ErrNotOpen
	}
	for _, w := range l.wtrs {
		if _, err := w.Write(b); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

func callLoc(depth int) (s string) {
	if _, file, line, ok := runtime.Caller(depth); ok {
		dir, file := filepath.Split(file)
		file = filepath.Join(filepath.Base(dir), file)
		s = fmt.Sprintf("%s:%d", file, line)
	}
	return
}

func (l Level) String() string {
	switch l {
	case OFF:
		return `OFF`
	case DEBUG:
		return `DEBUG`
	case INFO:
		return `INFO`
	case WARN:
		return `WARN`
	case ERROR:
		return `ERROR`
	case CRITICAL:
		return `CRITICAL`
	case FATAL:
		return `FATAL`
	}
	return `UNKNOWN`
}

func (l Level) Valid() bool {
	switch l {
	case OFF, DEBUG, INFO, WARN, ERROR, CRITICAL, FATAL:
		return true
	}
	return false
}

func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.User | rfc5424.Debug
	case INFO:
		return rfc5424.User | rfc5424.Info
	case WARN:
		return rfc5424.User | rfc5424.Warning
	case ERROR:
		return rfc5424.User | rfc5424.Error
	case CRITICAL:
		return rfc5424.User | rfc5424.Crit
	case FATAL:
		return rfc5424.User | rfc5424.Emergency
	}
	return rfc5424.User | rfc5424.Debug
}

func LevelFromString(s string) (l Level, err error) {
	switch strings.ToUpper(s) {
	case `OFF`:
		l = OFF
	case `DEBUG`:
		l = DEBUG
	case `INFO`:
		l = INFO
	case `WARN`:
		l = WARN
	case `ERROR`:
		l = ERROR
	case `CRITICAL`:
		l = CRITICAL
	case `FATAL`:
		l = FATAL
	default:
		err = ErrInvalidLevel
	}
	return
}

type discardCloser struct{}

func (discardCloser) Write(b []byte) (int, error) { return len(b), nil }
func (discardCloser) Close() error                 { return nil }

func trimLength(i int, input string) string {
	if len(input) <= i {
		return input
	}
	return input[:i]
}

func trimPathLength(i int, input string) string {
	if len(input) <= i {
		return input
	}
	return trimLength(i, filepath.Base(input))
}
