package testutil

import (
	"fmt"
	"sync"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/entitystore"
	memorydb "github.com/trezcool/shule/storage/memory"
)

// NewConfig returns the configuration used by tests; nothing is read from the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		Build:     "test",
		TestMode:  true,
		AppName:   "Shule",
		FromEmail: "Shule <noreply@shule.test>",
		Server: core.ServerConfig{
			Address:        ":0",
			DisableReqLogs: true,
		},
		Storage: core.StorageConfig{Backend: "memory", IDs: "sequence"},
	}
}

// NewStore returns a Store over a fresh in-memory backend, closed when the test ends.
func NewStore(t *testing.T, opts ...entitystore.Option) *entitystore.Store {
	t.Helper()
	store := entitystore.New(memorydb.Open(), opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// NewValidator returns the shared validator with the given domain tags registered.
func NewValidator(inits ...func(*validator.Validate, ut.Translator)) (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	for _, init := range inits {
		init(validate, translator)
	}
	return validate, translator
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records entries instead of printing them.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log("fatal", msg, args)
	panic(fmt.Sprintf("fatal: %s", msg))
}
