package types

// InferRequest represents a prompt submission.
type InferRequest struct {
	// Required prompt text to generate a response for.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
}

// InferChunk is one NDJSON line of a streamed response.
type InferChunk struct {
	// Partial output text.
	Text string `json:"text,omitempty"`
	// True on the final line.
	Done bool `json:"done,omitempty"`
	// Set when generation failed after streaming began.
	Error string `json:"error,omitempty"`
}

// LoadLocalRequest selects a local model file. An empty path is a dismissed pick.
type LoadLocalRequest struct {
	// example: /home/user/models/gemma-2b-it-gpu-int4.bin
	Path string `json:"path" example:"/home/user/models/gemma-2b-it-gpu-int4.bin"`
}

// LoadResponse reports the outcome of an acquisition.
type LoadResponse struct {
	// False when the user backed out; no model was changed.
	Loaded bool   `json:"loaded"`
	Model  *Model `json:"model,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Current model, absent until one is loaded or restored.
	Model *Model `json:"model,omitempty"`
	// Whether the one-shot restore probe has been triggered.
	Probed bool `json:"probed"`
	// True while a response is streaming.
	Generating bool `json:"generating"`
	// Last submitted prompt.
	Prompt string `json:"prompt,omitempty"`
	// Accumulated response text.
	Output   string           `json:"output,omitempty"`
	Notices  Notices          `json:"notices"`
	Download DownloadProgress `json:"download"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
