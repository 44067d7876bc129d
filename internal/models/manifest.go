package models

import "time"

// ParamSpec declares one parameter accepted by a tool manifest.
// Enum and Pattern only apply to string parameters.
type ParamSpec struct {
	Type     ParamType   `json:"type"`
	Required bool        `json:"required,omitempty"`
	Enum     []string    `json:"enum,omitempty"`
	Pattern  string      `json:"pattern,omitempty"`
	Default  interface{} `json:"default,omitempty"`
}

// ToolManifest is the immutable, versioned description of one executable
// capability. Updates never mutate a manifest in place — a new version is
// appended and the tool's active pointer is repointed.
//
// CommandTemplate is an ordered list of literal tokens and {{name}}
// placeholders; {{target}} is reserved for the validated target.
type ToolManifest struct {
	Tool            string               `json:"tool"`
	Version         int                  `json:"version"`
	Description     string               `json:"description,omitempty"`
	Binary          string               `json:"binary"`
	ArgsSchema      map[string]ParamSpec `json:"argsSchema"`
	CommandTemplate []string             `json:"commandTemplate"`
	TimeoutSeconds  int                  `json:"timeout"`
	MemoryLimitMB   int                  `json:"memoryLimit,omitempty"`
	CPULimit        float64              `json:"cpuLimit,omitempty"`
	CreatedAt       time.Time            `json:"created_at,omitempty"`
}
