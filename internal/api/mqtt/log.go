package mqtt

import (
	"fmt"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/alarm-bridge/internal/logger"
)

// pahoLogger adapts a zap logger to the client library's logger interface.
type pahoLogger struct {
	// log is pinned to level.
	log *zap.SugaredLogger
	// level is used for every line.
	level zapcore.Level
}

func (l pahoLogger) Println(v ...any) {
	l.write(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l pahoLogger) Printf(format string, v ...any) {
	l.write(fmt.Sprintf(format, v...))
}

func (l pahoLogger) write(line string) {
	if ce := l.log.Desugar().Check(l.level, line); ce != nil {
		ce.Write()
	}
}

// RouteLibraryLogs sends the client library's own logs to the bridge logger.
// Its error and critical lines are always kept; warnings and debug lines only
// when the bridge runs at debug level.
func RouteLibraryLogs(debug bool) {
	paho.ERROR = pahoLogger{log: logger.Pinned("paho", zapcore.ErrorLevel), level: zapcore.ErrorLevel}
	paho.CRITICAL = pahoLogger{log: logger.Pinned("paho", zapcore.ErrorLevel), level: zapcore.ErrorLevel}

	if !debug {
		return
	}

	paho.WARN = pahoLogger{log: logger.Pinned("paho", zapcore.WarnLevel), level: zapcore.WarnLevel}
	paho.DEBUG = pahoLogger{log: logger.Pinned("paho", zapcore.DebugLevel), level: zapcore.DebugLevel}
}
