package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	logger = newSimpleLogger()
	// netLogging mirrors every raw stratum line into the debug log.
	netLogging atomic.Bool
)

const (
	logLevelDebug logLevel = iota
	logLevelInfo
	logLevelWarn
	logLevelError
)

const logRetentionDays = 3

var levelNames = []string{
	"DEBUG",
	"INFO",
	"WARN",
	"ERROR",
}

type logLevel int32

func (l logLevel) String() string {
	if int(l) >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// parseLogLevel maps a config/flag value onto a level. "warning" and "err"
// are accepted because older configs used them.
func parseLogLevel(s string) (logLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return logLevelDebug, nil
	case "", "info":
		return logLevelInfo, nil
	case "warn", "warning":
		return logLevelWarn, nil
	case "error", "err":
		return logLevelError, nil
	default:
		return logLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

type logEvent struct {
	at    time.Time
	level logLevel
	msg   string
	attrs []any
}

type simpleLogger struct {
	level       atomic.Int32
	queue       chan logEvent
	done        chan struct{}
	writerMu    sync.RWMutex
	mainWriter  io.Writer
	errorWriter io.Writer
	debugWriter io.Writer
	stdout      bool
	wg          sync.WaitGroup
	stopOnce    sync.Once
	closing     atomic.Bool
}

func newSimpleLogger() *simpleLogger {
	l := &simpleLogger{
		queue:       make(chan logEvent, 4096),
		done:        make(chan struct{}),
		mainWriter:  io.Discard,
		errorWriter: io.Discard,
		debugWriter: io.Discard,
		stdout:      true,
	}
	l.level.Store(int32(logLevelInfo))
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *simpleLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case evt := <-l.queue:
			l.writeEntry(evt)
		case <-l.done:
			for {
				select {
				case evt := <-l.queue:
					l.writeEntry(evt)
				default:
					return
				}
			}
		}
	}
}

func (l *simpleLogger) enabled(level logLevel) bool {
	return int32(level) >= l.level.Load()
}

func (l *simpleLogger) log(level logLevel, msg string, attrs ...any) {
	if !l.enabled(level) || l.closing.Load() {
		return
	}
	evt := logEvent{at: time.Now(), level: level, msg: msg, attrs: append([]any(nil), attrs...)}
	select {
	case l.queue <- evt:
	case <-l.done:
	}
}

func (l *simpleLogger) Info(msg string, attrs ...any) {
	l.log(logLevelInfo, msg, attrs...)
}

func (l *simpleLogger) Warn(msg string, attrs ...any) {
	l.log(logLevelWarn, msg, attrs...)
}

func (l *simpleLogger) Error(msg string, attrs ...any) {
	l.log(logLevelError, msg, attrs...)
}

func (l *simpleLogger) Debug(msg string, attrs ...any) {
	l.log(logLevelDebug, msg, attrs...)
}

func (l *simpleLogger) setLevel(level logLevel) {
	l.level.Store(int32(level))
}

func (l *simpleLogger) configureWriters(main, errWriter, debug io.Writer, stdout bool) {
	if main == nil {
		main = io.Discard
	}
	if errWriter == nil {
		errWriter = io.Discard
	}
	if debug == nil {
		debug = io.Discard
	}
	l.writerMu.Lock()
	old := []io.Writer{l.mainWriter, l.errorWriter, l.debugWriter}
	l.mainWriter = main
	l.errorWriter = errWriter
	l.debugWriter = debug
	l.stdout = stdout
	l.writerMu.Unlock()
	for _, w := range old {
		closeWriter(w)
	}
}

// Stop drains the queue and closes file writers. Safe to call more than once.
func (l *simpleLogger) Stop() {
	l.stopOnce.Do(func() {
		l.closing.Store(true)
		close(l.done)
		l.wg.Wait()
		l.writerMu.Lock()
		closeWriter(l.mainWriter)
		closeWriter(l.errorWriter)
		closeWriter(l.debugWriter)
		l.mainWriter = io.Discard
		l.errorWriter = io.Discard
		l.debugWriter = io.Discard
		l.writerMu.Unlock()
	})
}

func closeWriter(w io.Writer) {
	if closer, ok := w.(io.Closer); ok {
		_ = closer.Close()
	}
}

func formatLogLine(evt logEvent) string {
	var entry strings.Builder
	entry.WriteString(evt.at.UTC().Format(time.RFC3339Nano))
	entry.WriteString(" [")
	entry.WriteString(evt.level.String())
	entry.WriteString("] ")
	entry.WriteString(evt.msg)
	if attrs := formatAttrs(evt.attrs); attrs != "" {
		entry.WriteByte(' ')
		entry.WriteString(attrs)
	}
	entry.WriteByte('\n')
	return entry.String()
}

func (l *simpleLogger) writeEntry(evt logEvent) {
	line := []byte(formatLogLine(evt))

	l.writerMu.RLock()
	mainWriter := l.mainWriter
	errWriter := l.errorWriter
	debugWriter := l.debugWriter
	stdout := l.stdout
	l.writerMu.RUnlock()

	if stdout {
		_, _ = os.Stdout.Write(line)
	}
	if evt.level == logLevelDebug {
		_, _ = debugWriter.Write(line)
		return
	}
	_, _ = mainWriter.Write(line)
	if evt.level >= logLevelError {
		_, _ = errWriter.Write(line)
	}
}

func formatAttrs(attrs []any) string {
	if len(attrs) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(attrs); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		key := fmt.Sprint(attrs[i])
		if i+1 < len(attrs) {
			value := fmt.Sprint(attrs[i+1])
			b.WriteString(key)
			b.WriteByte('=')
			if strings.ContainsAny(value, " \t") {
				value = fmt.Sprintf("%q", value)
			}
			b.WriteString(value)
			i++
		} else {
			b.WriteString(key)
		}
	}
	return b.String()
}

func newDailyRollingFileWriter(path string) io.Writer {
	if path == "" {
		return io.Discard
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return &dailyRollingFileWriter{
		dir:  filepath.Dir(path),
		name: strings.TrimSuffix(base, ext),
		ext:  ext,
	}
}

// dailyRollingFileWriter writes to <name>-<YYYY-MM-DD><ext> and prunes files
// older than logRetentionDays whenever it rolls over.
type dailyRollingFileWriter struct {
	dir         string
	name        string
	ext         string
	mu          sync.Mutex
	f           *os.File
	currentDate string
}

func (w *dailyRollingFileWriter) ensureFile(now time.Time) error {
	if w.name == "" || w.dir == "" {
		return fmt.Errorf("invalid log path")
	}
	date := now.UTC().Format(time.DateOnly)
	if w.f != nil && w.currentDate == date {
		return nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	target := filepath.Join(w.dir, fmt.Sprintf("%s-%s%s", w.name, date, w.ext))
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.f = f
	w.currentDate = date
	w.pruneOldLogs(now)
	return nil
}

func (w *dailyRollingFileWriter) pruneOldLogs(now time.Time) {
	cutoff := now.UTC().AddDate(0, 0, -(logRetentionDays - 1))
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	prefix := w.name + "-"
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, w.ext) {
			continue
		}
		dateStr := strings.TrimSuffix(strings.TrimPrefix(name, prefix), w.ext)
		ts, err := time.Parse(time.DateOnly, dateStr)
		if err != nil {
			continue
		}
		if ts.Before(cutoff) {
			_ = os.Remove(filepath.Join(w.dir, name))
		}
	}
}

func (w *dailyRollingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ensureFile(time.Now()); err != nil {
		return 0, err
	}
	return w.f.Write(p)
}

func (w *dailyRollingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func setLogLevel(level logLevel) {
	logger.setLevel(level)
}

// configureLogging applies the [logging] section. The main log gets info and
// above, errors.log gets errors only and debug.log only debug entries.
func configureLogging(cfg Config) error {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	setLogLevel(level)
	netLogging.Store(cfg.LogNetDebug)
	if cfg.LogFile == "" {
		logger.configureWriters(nil, nil, nil, true)
		return nil
	}
	dir := filepath.Dir(cfg.LogFile)
	var debugWriter io.Writer
	if level == logLevelDebug {
		debugWriter = newDailyRollingFileWriter(filepath.Join(dir, "debug.log"))
	}
	logger.configureWriters(
		newDailyRollingFileWriter(cfg.LogFile),
		newDailyRollingFileWriter(filepath.Join(dir, "errors.log")),
		debugWriter,
		cfg.LogStdout,
	)
	return nil
}

// logNetMessage records one raw stratum line when net debugging is on.
func logNetMessage(direction string, line []byte) {
	if !netLogging.Load() || !logger.enabled(logLevelDebug) {
		return
	}
	logger.Debug("stratum "+direction, "line", strings.TrimSpace(string(line)))
}

func logShareResult(accepted bool, jobID string, reason string) {
	if accepted {
		logger.Info("share accepted", "kind", "share", "job", jobID)
		return
	}
	if reason == "" {
		reason = "rejected by pool"
	}
	logger.Warn("share rejected", "kind", "share", "job", jobID, "reason", reason)
}

func fatal(msg string, err error, attrs ...any) {
	attrPairs := append(attrs, "error", err)
	logger.Error(msg, attrPairs...)
	logger.Stop()
	os.Exit(1)
}
