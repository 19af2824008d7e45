package lib

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes scan diagnostics to a pair of temp files: a main log of
// scan events and an error log of non-fatal failures. Safe for concurrent
// use.
type Logger struct {
	tempDir   string
	mainPath  string
	errorPath string
	mainFile  *os.File
	errorFile *os.File
	nonFatal  int
	mu        sync.Mutex
}

// NewLogger creates the log files under a fresh temp directory.
func NewLogger() (*Logger, error) {
	tmp, err := os.MkdirTemp("", "filescan-*")
	if err != nil {
		return nil, err
	}
	base := filepath.Join(tmp, fmt.Sprintf("filescan-%s", time.Now().Format("20060102")))
	mainPath := base + "-scan.log"
	errorPath := base + "-errors.log"
	mainFile, err := os.Create(mainPath)
	if err != nil {
		os.RemoveAll(tmp)
		return nil, err
	}
	errorFile, err := os.Create(errorPath)
	if err != nil {
		mainFile.Close()
		os.RemoveAll(tmp)
		return nil, err
	}
	return &Logger{tempDir: tmp, mainPath: mainPath, errorPath: errorPath, mainFile: mainFile, errorFile: errorFile}, nil
}

// Log appends one line to the main log.
func (logger *Logger) Log(msg string) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if logger.mainFile != nil {
		fmt.Fprintln(logger.mainFile, msg)
	}
}

// LogError records a non-fatal error in both logs and bumps the counter.
func (logger *Logger) LogError(err error) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.nonFatal++
	if logger.mainFile != nil {
		fmt.Fprintln(logger.mainFile, "error:", err.Error())
	}
	if logger.errorFile != nil {
		fmt.Fprintln(logger.errorFile, err.Error())
	}
}

// NonFatalCount returns how many errors were recorded.
func (logger *Logger) NonFatalCount() int {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	return logger.nonFatal
}

// PrintLogPaths prints the log file locations to stderr when stdout is a
// terminal.
func (logger *Logger) PrintLogPaths() {
	if !IsTTY(os.Stdout) {
		return
	}
	logger.mu.Lock()
	mainPath := logger.mainPath
	errorPath := logger.errorPath
	logger.mu.Unlock()
	fmt.Fprintln(os.Stderr, "Scan log:", mainPath)
	fmt.Fprintln(os.Stderr, "Error log:", errorPath)
}

// Close flushes and closes both log files.
func (logger *Logger) Close() error {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	var closeError error
	if logger.mainFile != nil {
		if err := logger.mainFile.Close(); err != nil && closeError == nil {
			closeError = err
		}
		logger.mainFile = nil
	}
	if logger.errorFile != nil {
		if err := logger.errorFile.Close(); err != nil && closeError == nil {
			closeError = err
		}
		logger.errorFile = nil
	}
	return closeError
}

// IsTTY reports whether file is attached to a character device.
func IsTTY(file *os.File) bool {
	if file == nil {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
