package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const currentFileName = "audit.log"

// FileWriter appends attempts as NDJSON to a rotating log file
type FileWriter struct {
	basePath string
	file     *os.File
	mu       sync.Mutex
	encoder  *json.Encoder
	rotate   bool
	maxSize  int64
	maxFiles int
	logErr   func(format string, args ...interface{})
}

// FileWriterConfig configures the file writer
type FileWriterConfig struct {
	BasePath string // Directory holding audit.log and rotated files
	Rotate   bool
	MaxSize  int64 // Bytes before rotation (default: 100MB)
	MaxFiles int   // Rotated files to keep (default: 10)
}

// DefaultFileWriterConfig returns default configuration
func DefaultFileWriterConfig() FileWriterConfig {
	return FileWriterConfig{
		BasePath: "/var/log/otpgate/audit",
		Rotate:   true,
		MaxSize:  100 * 1024 * 1024,
		MaxFiles: 10,
	}
}

// NewFileWriter creates a file-based audit writer
func NewFileWriter(config FileWriterConfig) (*FileWriter, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("audit log directory is required")
	}
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	w := &FileWriter{
		basePath: config.BasePath,
		rotate:   config.Rotate,
		maxSize:  config.MaxSize,
		maxFiles: config.MaxFiles,
		logErr: func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
	}
	if w.maxSize <= 0 {
		w.maxSize = 100 * 1024 * 1024
	}
	if w.maxFiles <= 0 {
		w.maxFiles = 10
	}

	if err := w.openLogFile(); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *FileWriter) currentPath() string {
	return filepath.Join(w.basePath, currentFileName)
}

// openLogFile opens the current file, rotating first when it is full
func (w *FileWriter) openLogFile() error {
	filename := w.currentPath()

	if w.rotate {
		if info, err := os.Stat(filename); err == nil && info.Size() >= w.maxSize {
			if err := w.rotateFile(); err != nil {
				return fmt.Errorf("failed to rotate audit log: %w", err)
			}
		}
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}

	w.file = file
	w.encoder = json.NewEncoder(file)
	return nil
}

func (w *FileWriter) rotateFile() error {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}

	// Nanoseconds keep names unique when several rotations land in one second.
	timestamp := time.Now().UTC().Format("20060102-150405.000000000")
	rotated := filepath.Join(w.basePath, fmt.Sprintf("audit-%s.log", timestamp))

	if err := os.Rename(w.currentPath(), rotated); err != nil {
		return fmt.Errorf("failed to rename audit log: %w", err)
	}

	if err := w.cleanupOldFiles(); err != nil {
		w.logErr("failed to cleanup old audit logs: %v", err)
	}
	return nil
}

// cleanupOldFiles removes rotated files beyond maxFiles, oldest first
func (w *FileWriter) cleanupOldFiles() error {
	files, err := w.rotatedFiles()
	if err != nil {
		return err
	}
	if len(files) <= w.maxFiles {
		return nil
	}

	for _, file := range files[:len(files)-w.maxFiles] {
		if err := os.Remove(file); err != nil {
			w.logErr("failed to remove old audit log %s: %v", file, err)
		}
	}
	return nil
}

// rotatedFiles lists rotated logs sorted oldest first
func (w *FileWriter) rotatedFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(w.basePath, "audit-*.log"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Write appends the attempt as one JSON line
func (w *FileWriter) Write(ctx context.Context, attempt *Attempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("audit log file is closed")
	}

	if w.rotate {
		if info, err := w.file.Stat(); err == nil && info.Size() >= w.maxSize {
			if err := w.openLogFile(); err != nil {
				return err
			}
		}
	}

	if err := w.encoder.Encode(attempt); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// Close closes the current file
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

// ReadAttempts reads up to count attempts from the current file. A count of
// zero reads everything.
func (w *FileWriter) ReadAttempts(count int) ([]*Attempt, error) {
	file, err := os.Open(w.currentPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	var attempts []*Attempt
	decoder := json.NewDecoder(file)
	for {
		var a Attempt
		if err := decoder.Decode(&a); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode audit log entry: %w", err)
		}
		attempts = append(attempts, &a)

		if count > 0 && len(attempts) >= count {
			break
		}
	}

	return attempts, nil
}
