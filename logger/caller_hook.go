package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// wrapperPackages are skipped when resolving the caller of a log line.
var wrapperPackages = []string{"github.com/sirupsen/logrus.", "satcatflow/logger."}

// callerHook points entry.Caller at the first frame outside logrus and the
// Log/Entry wrappers, so "func" and "file" name pipeline code.
type callerHook struct{}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *callerHook) Fire(entry *logrus.Entry) error {
	if frame, ok := firstForeignFrame(4); ok {
		entry.Caller = &frame
	}
	return nil
}

func firstForeignFrame(skip int) (runtime.Frame, bool) {
	pcs := make([]uintptr, 24)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !isWrapper(frame.Function) {
			return frame, frame.Function != ""
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}

func isWrapper(fn string) bool {
	for _, p := range wrapperPackages {
		if strings.HasPrefix(fn, p) {
			return true
		}
	}
	return false
}
