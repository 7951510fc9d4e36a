package audit

import (
	"context"
	"errors"
	"sync"
)

// MultiWriter writes each attempt to several writers in turn
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a writer that fans out to the given writers
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write writes to every writer, continuing past failures, and returns the
// joined errors.
func (m *MultiWriter) Write(ctx context.Context, attempt *Attempt) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Write(ctx, attempt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every writer
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemoryWriter keeps attempts in memory
type MemoryWriter struct {
	mu       sync.Mutex
	attempts []Attempt
	nextID   int64
	err      error
}

// NewMemoryWriter creates an empty in-memory writer
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

// FailWith makes subsequent writes return err. A nil err restores normal
// behaviour.
func (m *MemoryWriter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryWriter) Write(ctx context.Context, attempt *Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.nextID++
	attempt.ID = m.nextID
	m.attempts = append(m.attempts, *attempt)
	return nil
}

// Attempts returns a copy of the stored attempts in write order
func (m *MemoryWriter) Attempts() []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Attempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}

func (m *MemoryWriter) Close() error {
	return nil
}
