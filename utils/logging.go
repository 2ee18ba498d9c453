package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	logger "github.com/sirupsen/logrus"
)

// LogWriter owns the outputs configured by InitLogger.
type LogWriter struct {
	mutex    sync.Mutex
	file     *os.File
	disposed bool
}

// levelHook writes entries up to its own level to out, so console and file
// output can use different levels.
type levelHook struct {
	out       func(line []byte) error
	levels    []logger.Level
	formatter logger.Formatter
}

func (h *levelHook) Levels() []logger.Level {
	return h.levels
}

func (h *levelHook) Fire(entry *logger.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	return h.out(line)
}

func (w *LogWriter) write(line []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.disposed || w.file == nil {
		return nil
	}
	_, err := w.file.Write(line)
	return err
}

func (w *LogWriter) Dispose() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.disposed {
		return
	}
	w.disposed = true
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}

// InitLogger configures the standard logrus logger from the logging config section.
func InitLogger() (*LogWriter, logger.FieldLogger) {
	logWriter := &LogWriter{}
	stdLogger := logger.StandardLogger()
	if Config == nil {
		return logWriter, stdLogger
	}

	outputLevel, err := logger.ParseLevel(Config.Logging.OutputLevel)
	if err != nil {
		outputLevel = logger.InfoLevel
	}

	var output io.Writer = os.Stdout
	if Config.Logging.OutputStderr {
		output = os.Stderr
	}
	stdLogger.SetOutput(output)
	stdLogger.SetLevel(outputLevel)

	if Config.Logging.FilePath == "" {
		return logWriter, stdLogger
	}

	fileLevel, err := logger.ParseLevel(Config.Logging.FileLevel)
	if err != nil {
		fileLevel = logger.InfoLevel
	}
	file, err := os.OpenFile(Config.Logging.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		stdLogger.Errorf("failed opening log file %v: %v", Config.Logging.FilePath, err)
		return logWriter, stdLogger
	}
	logWriter.file = file

	stdLogger.SetOutput(io.Discard)
	if fileLevel > outputLevel {
		stdLogger.SetLevel(fileLevel)
	}
	stdLogger.AddHook(&levelHook{
		out: func(line []byte) error {
			_, err := output.Write(line)
			return err
		},
		levels:    logger.AllLevels[:outputLevel+1],
		formatter: &logger.TextFormatter{},
	})
	stdLogger.AddHook(&levelHook{
		out:       logWriter.write,
		levels:    logger.AllLevels[:fileLevel+1],
		formatter: &logger.JSONFormatter{},
	})

	return logWriter, stdLogger
}

// LogFatal logs a fatal error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogFatal is called.
func LogFatal(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Fatal(errorMsg)
}

// LogError logs an error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogError is called.
func LogError(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Error(errorMsg)
}

func logErrorInfo(err error, callerSkip int, additionalInfos ...map[string]interface{}) *logger.Entry {
	logFields := logger.NewEntry(logger.StandardLogger())

	pc, fullFilePath, line, ok := runtime.Caller(callerSkip + 2)
	if ok {
		logFields = logFields.WithFields(logger.Fields{
			"_file":     filepath.Base(fullFilePath),
			"_function": runtime.FuncForPC(pc).Name(),
			"_line":     line,
		})
	} else {
		logFields = logFields.WithField("runtime", "Callstack cannot be read")
	}

	errColl := []string{}
	for {
		errColl = append(errColl, fmt.Sprint(err))
		nextErr := errors.Unwrap(err)
		if nextErr != nil {
			err = nextErr
		} else {
			break
		}
	}

	errMarkSign := "~"
	for idx := 0; idx < (len(errColl) - 1); idx++ {
		errInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx, errMarkSign)
		nextErrInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx+1, errMarkSign)
		if idx == (len(errColl) - 2) {
			nextErrInfoText = fmt.Sprintf("%serror%s", errMarkSign, errMarkSign)
		}

		// Replace the last occurrence of the next error in the current error
		lastIdx := strings.LastIndex(errColl[idx], errColl[idx+1])
		if lastIdx != -1 {
			errColl[idx] = errColl[idx][:lastIdx] + nextErrInfoText + errColl[idx][lastIdx+len(errColl[idx+1]):]
		}

		errInfoText = strings.ReplaceAll(errInfoText, errMarkSign, "")
		logFields = logFields.WithField(errInfoText, errColl[idx])
	}

	if err != nil {
		logFields = logFields.WithField("errType", fmt.Sprintf("%T", err)).WithError(err)
	}

	for _, infoMap := range additionalInfos {
		for name, info := range infoMap {
			logFields = logFields.WithField(name, info)
		}
	}

	return logFields
}
