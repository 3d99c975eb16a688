package events

import "github.com/dshills/undoredo/internal/event/topic"

// Config event topics.
const (
	// TopicConfigReloaded is published after a changed config file is applied.
	TopicConfigReloaded topic.Topic = "config.reloaded"

	// TopicConfigReloadFailed is published when a changed config file cannot be applied.
	TopicConfigReloadFailed topic.Topic = "config.reload.failed"
)

// ConfigReloaded is published after a reload.
type ConfigReloaded struct {
	// Path is the config file that changed.
	Path string

	// Changed lists the dot-notation keys whose values differ from before.
	Changed []string
}

// ConfigReloadFailed is published when a reload is rejected.
type ConfigReloadFailed struct {
	Path string
	Err  error
}
