// Package logger provides structured loggers for different components of the
// core simulator. It wraps logrus and exposes category-specific log entries
// such as MainLog, AmfLog, SmfLog, etc. The logging level and caller reporting
// can be adjusted at runtime via InitLog.
package logger

import (
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	moduleNameCoreSim = "CORESIM"
)

var (
	initOnce sync.Once

	// MainLog is the primary logger for high-level lifecycle events
	// (startup, shutdown, major state transitions).
	MainLog *log.Entry

	// CfgLog is used for configuration loading, validation, and printing.
	CfgLog *log.Entry

	// StorageLog is for persistence-related logs (memory/Mongo backends).
	StorageLog *log.Entry

	// ContextLog is for runtime context changes (instance identity, shutdown flags).
	ContextLog *log.Entry

	// SbiLog is for the HTTP server exposing the per-NF APIs.
	SbiLog *log.Entry

	// AuditLog is for the simulation audit trail (LogEntry sink and the
	// log-stream tailer).
	AuditLog *log.Entry

	// AmfLog is for the registration orchestrator.
	AmfLog *log.Entry

	// SmfLog is for the session orchestrator.
	SmfLog *log.Entry

	// UpfLog is for the traffic simulator.
	UpfLog *log.Entry

	// NrfLog is for the NF registry.
	NrfLog *log.Entry

	// NssfLog is for the slice selector.
	NssfLog *log.Entry

	// PcfLog is for the policy provider.
	PcfLog *log.Entry

	// UdmLog is for the UDM/AUSF authenticator.
	UdmLog *log.Entry
)

func init() {
	// Entries must exist before any package logs; InitLog re-applies the
	// configured level later.
	_ = InitLog("info", false)
}

// InitLog configures the global logrus settings and initializes all category
// loggers. It is safe to call multiple times; the first call wins.
// Subsequent calls will update the log level and reportCaller flag.
func InitLog(levelString string, reportCaller bool) error {
	var initErr error

	initOnce.Do(func() {
		// Global formatter settings
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})

		// Initialize category loggers with default level (info).
		log.SetLevel(log.InfoLevel)
		log.SetReportCaller(reportCaller)

		newEntry := func(category string) *log.Entry {
			return log.WithFields(log.Fields{
				"module":   moduleNameCoreSim,
				"category": category,
			})
		}

		MainLog = newEntry("MAIN")
		CfgLog = newEntry("CFG")
		StorageLog = newEntry("STORAGE")
		ContextLog = newEntry("CONTEXT")
		SbiLog = newEntry("SBI")
		AuditLog = newEntry("AUDIT")
		AmfLog = newEntry("AMF")
		SmfLog = newEntry("SMF")
		UpfLog = newEntry("UPF")
		NrfLog = newEntry("NRF")
		NssfLog = newEntry("NSSF")
		PcfLog = newEntry("PCF")
		UdmLog = newEntry("UDM")
	})

	// Parse and apply the requested log level on every call.
	parsedLevel, parseErr := parseLogLevel(levelString)
	if parseErr != nil {
		// Fallback to info if parsing fails, but still return an error
		log.SetLevel(log.InfoLevel)
		if CfgLog != nil {
			CfgLog.Warnf("invalid log level %q, falling back to info: %v", levelString, parseErr)
		}
		initErr = parseErr
	} else {
		log.SetLevel(parsedLevel)
	}

	// Update report caller according to the latest configuration.
	log.SetReportCaller(reportCaller)

	return initErr
}

// parseLogLevel converts a string log level (case-insensitive) into a logrus.Level.
func parseLogLevel(levelString string) (log.Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(levelString))

	switch normalized {
	case "trace":
		return log.TraceLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	case "fatal":
		return log.FatalLevel, nil
	case "panic":
		return log.PanicLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("unknown log level: %s", levelString)
	}
}
