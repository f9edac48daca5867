package api

import (
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/export"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/version"
)

type ResponseError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	// Kind, Path and Offset are set for decode failures only.
	Kind   string `json:"kind,omitempty"`
	Path   string `json:"path,omitempty"`
	Offset *int   `json:"offset,omitempty"`
}

type ErrorResponse struct {
	RequestID string        `json:"request_id,omitempty"`
	Error     ResponseError `json:"error"`
}

type ValidateResponse struct {
	RequestID string       `json:"request_id,omitempty"`
	Valid     bool         `json:"valid"`
	Version   string       `json:"version"`
	Size      int          `json:"size"`
	Stats     export.Stats `json:"stats"`
}

type HealthResponse struct {
	Status  string       `json:"status"`
	Build   version.Info `json:"build"`
	Formats []string     `json:"formats"`
}
