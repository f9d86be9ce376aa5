// Package prefs is the user preference store of the sampler.
//
// Preferences are runtime-adjustable settings such as the measurement duration.
// They are persisted as YAML and components subscribe to the keys they follow,
// so a change from the command line or an operator takes effect without a
// restart.
package prefs

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/arloliu/go-gasera/internal/util"
	"github.com/arloliu/go-gasera/logger"
	"gopkg.in/yaml.v3"
)

// Preference keys.
const (
	KeyMeasurementDuration = "measurement_duration"
	KeyMotorTimeout        = "motor_timeout"
	KeyChartUpdateInterval = "chart_update_interval"
)

// Default values in seconds.
const (
	DefaultMeasurementDuration = 600
	DefaultMotorTimeout        = 10
	DefaultChartUpdateInterval = 5
)

// ErrInvalidValue is returned when a value cannot be stored as an integer.
var ErrInvalidValue = errors.New("invalid preference value")

// KnownKeys returns the keys UpdateFromMap accepts.
func KnownKeys() []string {
	return []string{KeyChartUpdateInterval, KeyMeasurementDuration, KeyMotorTimeout}
}

// ChangeFunc is called with the key and new value after a change was persisted.
type ChangeFunc func(key string, value any)

// IntHandler adapts fn to a ChangeFunc, values that are not integers are ignored.
func IntHandler(fn func(value int)) ChangeFunc {
	return func(_ string, value any) {
		if n, ok := ToInt(value); ok {
			fn(n)
		}
	}
}

// Store is the preference capability the sampler components consume.
type Store interface {
	GetInt(key string, def int) int
	SetInt(key string, value int) error
	Subscribe(key string, fn ChangeFunc)
}

// FileStore is a Store persisted to a YAML file.
//
// Writes replace the file atomically; subscribers run after the write, outside
// any lock, in registration order. An empty path keeps the store in memory.
type FileStore struct {
	path   string
	logger logger.Logger

	mu   sync.RWMutex
	data map[string]any

	subMu sync.RWMutex
	subs  map[string][]ChangeFunc
}

var _ Store = (*FileStore)(nil)

// Open loads the store at path. A missing file starts empty; an unreadable or
// corrupt file is logged and also starts empty.
func Open(path string, l logger.Logger) (*FileStore, error) {
	if l == nil {
		l = logger.GetLogger()
	}

	s := &FileStore{
		path:   path,
		logger: l.With("component", "prefs"),
		data:   make(map[string]any),
		subs:   make(map[string][]ChangeFunc),
	}

	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		s.logger.Warn("failed to read preferences, starting empty", "path", path, "error", err)
		return s, nil
	}

	if err := yaml.Unmarshal(raw, &s.data); err != nil {
		s.logger.Warn("corrupt preferences, starting empty", "path", path, "error", err)
		s.data = make(map[string]any)
	}
	if s.data == nil {
		s.data = make(map[string]any)
	}

	return s, nil
}

// Path returns the backing file, empty for an in-memory store.
func (s *FileStore) Path() string { return s.path }

// Get returns the raw value of key.
func (s *FileStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]

	return v, ok
}

// GetInt returns key as an integer, or def when missing or not numeric.
func (s *FileStore) GetInt(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}

	n, ok := ToInt(v)
	if !ok {
		return def
	}

	return n
}

// GetString returns key formatted as a string, or def when missing.
func (s *FileStore) GetString(key string, def string) string {
	v, ok := s.Get(key)
	if !ok {
		return def
	}

	return fmt.Sprint(v)
}

// All returns a copy of every stored value.
func (s *FileStore) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}

	return out
}

// Set stores value under key and persists the store.
func (s *FileStore) Set(key string, value any) error {
	return s.apply(map[string]any{key: value})
}

// SetInt stores an integer value under key and persists the store.
func (s *FileStore) SetInt(key string, value int) error {
	return s.Set(key, value)
}

// UpdateFromMap stores the known keys of updates in one write and ignores the
// rest. Every known value must be an integer, otherwise nothing is stored.
// It returns the applied keys in sorted order.
func (s *FileStore) UpdateFromMap(updates map[string]any) ([]string, error) {
	accepted := make(map[string]any, len(updates))
	for _, key := range KnownKeys() {
		v, ok := updates[key]
		if !ok {
			continue
		}

		n, ok := ToInt(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidValue, key, v)
		}
		accepted[key] = n
	}

	if len(accepted) == 0 {
		return nil, nil
	}

	if err := s.apply(accepted); err != nil {
		return nil, err
	}

	return util.SortedKeys(accepted), nil
}

// Subscribe registers fn for changes of key.
func (s *FileStore) Subscribe(key string, fn ChangeFunc) {
	if fn == nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.subs[key] = append(s.subs[key], fn)
}

func (s *FileStore) apply(updates map[string]any) error {
	s.mu.Lock()
	previous := make(map[string]any, len(updates))
	for k := range updates {
		if old, ok := s.data[k]; ok {
			previous[k] = old
		}
	}
	for k, v := range updates {
		s.data[k] = v
	}

	if err := s.persistLocked(); err != nil {
		// roll back so memory keeps matching the file
		for k := range updates {
			if old, ok := previous[k]; ok {
				s.data[k] = old
			} else {
				delete(s.data, k)
			}
		}
		s.mu.Unlock()

		return err
	}
	s.mu.Unlock()

	for k, v := range updates {
		s.notify(k, v)
	}

	return nil
}

func (s *FileStore) persistLocked() error {
	if s.path == "" {
		return nil
	}

	raw, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp preferences: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close preferences: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}

	return nil
}

func (s *FileStore) notify(key string, value any) {
	s.subMu.RLock()
	subs := util.CloneSlice(s.subs[key])
	s.subMu.RUnlock()

	for _, fn := range subs {
		s.invoke(fn, key, value)
	}
}

func (s *FileStore) invoke(fn ChangeFunc, key string, value any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("preference subscriber panicked", "key", key, "panic", r)
		}
	}()

	fn(key, value)
}

// ToInt converts the numeric shapes a YAML or JSON decoder produces to int.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}
