package config

import "time"

// RunConfig is the YAML document the statekit CLI runs a store from.
type RunConfig struct {
	SchemaVersion string `yaml:"schemaVersion" json:"schemaVersion"`
	// Store names a catalog entry.
	Store string `yaml:"store" json:"store"`
	// AccessMode is "deep_copy" (default) or "unsafe_direct_reference".
	AccessMode StateAccessMode `yaml:"access_mode,omitempty" json:"access_mode,omitempty"`
	// MemoizeQueries caches query results per state version.
	MemoizeQueries bool `yaml:"memoize_queries,omitempty" json:"memoize_queries,omitempty"`
	// EventBufferSize sizes the event bus channel. Zero disables events.
	EventBufferSize *int `yaml:"event_buffer_size,omitempty" json:"event_buffer_size,omitempty"`
	// Timeout bounds the whole run, as a Go duration string.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Params are handed to the store's definition factory.
	Params map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
	// State overrides initial field values.
	State map[string]interface{} `yaml:"state,omitempty" json:"state,omitempty"`
	// Invoke lists actions to run in order.
	Invoke []Invocation `yaml:"invoke,omitempty" json:"invoke,omitempty"`

	// FilePath records where the config was read from, for messages.
	FilePath string `yaml:"-" json:"-"`
}

// Invocation is one action call of a run.
type Invocation struct {
	Action string        `yaml:"action" json:"action"`
	Args   []interface{} `yaml:"args,omitempty" json:"args,omitempty"`
	// IgnoreErrors continues the run when the action fails.
	IgnoreErrors bool `yaml:"ignore_errors,omitempty" json:"ignore_errors,omitempty"`
}

// TimeoutDuration parses Timeout. An empty Timeout yields zero.
func (c *RunConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Timeout)
}

// EventsEnabled reports whether the run should attach an event bus.
func (c *RunConfig) EventsEnabled() bool {
	return c.EventBufferSize == nil || *c.EventBufferSize > 0
}

// BufferSize returns the configured event buffer size or the default.
func (c *RunConfig) BufferSize() int {
	if c.EventBufferSize == nil {
		return DefaultEventBufferSize
	}
	return *c.EventBufferSize
}
