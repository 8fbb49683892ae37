package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// WorkerPool runs named jobs on a bounded number of goroutines and collects
// their errors.
type WorkerPool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	errs      []error
}

// NewWorkerPool creates a WorkerPool running at most maxWorkers jobs at once.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{semaphore: make(chan struct{}, maxWorkers)}
}

// Submit enqueues a job. It blocks while the pool is saturated.
func (wp *WorkerPool) Submit(name string, job func() error) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()
		defer func() {
			if r := recover(); r != nil {
				wp.record(fmt.Errorf("%s: panic: %v", name, r))
			}
		}()

		if err := job(); err != nil {
			wp.record(fmt.Errorf("%s: %w", name, err))
		}
	}()
}

func (wp *WorkerPool) record(err error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.errs = append(wp.errs, err)
}

// Wait blocks until all submitted jobs have completed and returns their
// joined errors, or nil.
func (wp *WorkerPool) Wait() error {
	wp.wg.Wait()
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return errors.Join(wp.errs...)
}

// KeySet is a thread-safe set of normalised keys used for de-duplication.
type KeySet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

func normaliseKey(k string) string {
	return strings.Join(strings.Fields(k), " ")
}

// Add returns true if the key was newly added, false if already present.
func (s *KeySet) Add(key string) bool {
	key = normaliseKey(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Contains returns true if the key has already been added.
func (s *KeySet) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[normaliseKey(key)]
	return exists
}

// Size returns the number of unique keys tracked.
func (s *KeySet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
