package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionLogger collects the studio's run identity, model selection, local
// tooling, and feature flags, then emits a single structured zerolog event
// summarising the session configuration. One event up front makes a failed
// run reconstructible from its log alone.
type SessionLogger struct {
	name         string
	sessionID    string
	initDuration time.Duration

	models   map[string]string
	tools    map[string]string
	features map[string]bool
	config   map[string]string
}

// NewSessionLogger creates a SessionLogger for the given binary name.
func NewSessionLogger(name string) *SessionLogger {
	return &SessionLogger{
		name:     name,
		models:   make(map[string]string),
		tools:    make(map[string]string),
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// SessionID sets the unique id for this run.
func (s *SessionLogger) SessionID(id string) *SessionLogger {
	s.sessionID = id
	return s
}

// Model registers a generation model used by this session.
func (s *SessionLogger) Model(label, id string) *SessionLogger {
	s.models[label] = id
	return s
}

// Tool registers an external binary (ffmpeg, ffplay) resolved for this run.
// Only the path is logged.
func (s *SessionLogger) Tool(label, path string) *SessionLogger {
	s.tools[label] = path
	return s
}

// Feature registers a boolean feature flag (e.g. "shorts", "search").
func (s *SessionLogger) Feature(name string, enabled bool) *SessionLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *SessionLogger) Config(key, value string) *SessionLogger {
	s.config[key] = value
	return s
}

// InitDuration records how long startup took.
func (s *SessionLogger) InitDuration(d time.Duration) *SessionLogger {
	s.initDuration = d
	return s
}

// EnvOrDefault returns the value of the named environment variable, or
// defaultVal if the variable is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// Log emits a single structured INFO log event with all collected information.
func (s *SessionLogger) Log() {
	evt := log.Info()

	sessionDict := zerolog.Dict().
		Str("name", s.name).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", os.Getenv("STUDIO_LOG_LEVEL"))
	if s.sessionID != "" {
		sessionDict = sessionDict.Str("id", s.sessionID)
	}
	evt = evt.Dict("session", sessionDict)

	if len(s.models) > 0 {
		evt = evt.Dict("models", dictFromMap(s.models))
	}
	if len(s.tools) > 0 {
		evt = evt.Dict("tools", dictFromMap(s.tools))
	}
	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}
	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}
	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Session startup complete")
}

// dictFromMap converts a map[string]string into a zerolog.Event (Dict).
func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
