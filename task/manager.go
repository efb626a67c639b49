// Created on 2024/6/4 by khanghh
// Project: github.com/verichains/dailygm
// Copyright (c) 2024 Verichains Lab

package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

const (
	TaskMaxCount    = 100
	TaskKillTimeout = 10 * time.Second
)

var (
	ErrTaskLimitReached  = errors.New("maximum task limit reached")
	ErrTaskAlreadyExists = errors.New("task already exists")
	ErrTaskNotExists     = errors.New("task does not exist")
	ErrTaskKillTimedOut  = errors.New("task kill timed out")
	ErrManagerStopped    = errors.New("task manager stopped")
)

var DefaultConfig = Config{
	MaxTasks:    TaskMaxCount,
	KillTimeout: TaskKillTimeout,
}

type Config struct {
	MaxTasks    int
	KillTimeout time.Duration
}

func (cfg *Config) Sanitize() error {
	if cfg.MaxTasks <= 0 {
		log.Warn("Sanitizing max task count", "provided", cfg.MaxTasks, "updated", DefaultConfig.MaxTasks)
		cfg.MaxTasks = DefaultConfig.MaxTasks
	}
	if cfg.KillTimeout <= 0 {
		log.Warn("Sanitizing task kill timeout", "provided", cfg.KillTimeout, "updated", DefaultConfig.KillTimeout)
		cfg.KillTimeout = DefaultConfig.KillTimeout
	}
	return nil
}

type TaskStatus uint32

const (
	StatusPending TaskStatus = iota
	StatusRunning
	StatusStopped
)

func (s TaskStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	}
	return "unknown"
}

// Task is a unit of background work. Run must return once ctx is cancelled.
type Task interface {
	Run(ctx context.Context) error
}

type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type taskEntry struct {
	task   Task
	status uint32
	cancel context.CancelFunc
	doneCh chan struct{}
	err    error
}

func (e *taskEntry) Status() TaskStatus {
	return TaskStatus(atomic.LoadUint32(&e.status))
}

type TaskManager struct {
	config *Config
	tasks  map[string]*taskEntry
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mtx    sync.Mutex
	quit   bool
}

// RunTask starts task in the background under name. Names are unique among
// running tasks, a finished task releases its name.
func (tm *TaskManager) RunTask(name string, task Task) error {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	if tm.quit {
		return ErrManagerStopped
	}
	if _, exist := tm.tasks[name]; exist {
		return ErrTaskAlreadyExists
	}
	if len(tm.tasks) >= tm.config.MaxTasks {
		return ErrTaskLimitReached
	}
	ctx, cancel := context.WithCancel(tm.ctx)
	entry := &taskEntry{
		task:   task,
		cancel: cancel,
		doneCh: make(chan struct{}),
	}
	tm.tasks[name] = entry
	tm.wg.Add(1)
	go tm.run(ctx, name, entry)
	return nil
}

func (tm *TaskManager) run(ctx context.Context, name string, entry *taskEntry) {
	defer tm.wg.Done()
	atomic.StoreUint32(&entry.status, uint32(StatusRunning))
	entry.err = entry.task.Run(ctx)
	atomic.StoreUint32(&entry.status, uint32(StatusStopped))
	entry.cancel()
	if entry.err != nil && !errors.Is(entry.err, context.Canceled) {
		log.Warn(fmt.Sprintf("Task `%s` failed", name), "error", entry.err)
	}

	tm.mtx.Lock()
	if tm.tasks[name] == entry {
		delete(tm.tasks, name)
	}
	tm.mtx.Unlock()
	close(entry.doneCh)
}

func (tm *TaskManager) getEntry(name string) (*taskEntry, error) {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	entry, exists := tm.tasks[name]
	if !exists {
		return nil, ErrTaskNotExists
	}
	return entry, nil
}

// KillTask cancels the named task and waits for it to return. Killing an unknown
// task is a no-op.
func (tm *TaskManager) KillTask(name string) error {
	entry, err := tm.getEntry(name)
	if err != nil {
		return nil
	}
	entry.cancel()
	select {
	case <-time.After(tm.config.KillTimeout):
		log.Error(fmt.Sprintf("Could not kill task `%s`", name), "error", ErrTaskKillTimedOut)
		return ErrTaskKillTimedOut
	case <-entry.doneCh:
	}
	return nil
}

// WaitTask blocks until the named task returns and yields its error.
func (tm *TaskManager) WaitTask(ctx context.Context, name string) error {
	entry, err := tm.getEntry(name)
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-entry.doneCh:
		return entry.err
	}
}

func (tm *TaskManager) TaskStatus(name string) (TaskStatus, error) {
	entry, err := tm.getEntry(name)
	if err != nil {
		return StatusStopped, err
	}
	return entry.Status(), nil
}

func (tm *TaskManager) Tasks() []string {
	tm.mtx.Lock()
	defer tm.mtx.Unlock()
	names := make([]string, 0, len(tm.tasks))
	for name := range tm.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (tm *TaskManager) Stop() {
	tm.mtx.Lock()
	if tm.quit {
		tm.mtx.Unlock()
		return
	}
	tm.quit = true
	tm.mtx.Unlock()

	for _, name := range tm.Tasks() {
		tm.KillTask(name)
	}
	tm.cancel()
	tm.wg.Wait()
	log.Debug("TaskManager stopped")
}

func NewTaskManager(cfg *Config) (*TaskManager, error) {
	if err := cfg.Sanitize(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskManager{
		config: cfg,
		tasks:  make(map[string]*taskEntry),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}
