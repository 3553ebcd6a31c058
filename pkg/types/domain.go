package types

// Model describes the currently loaded model.
type Model struct {
	// Session-local reference handed to the generation engine.
	// example: blob:3f1c2a8e-4b9d-4a51-9d0e-6f3b2c1a7e55
	Reference string `json:"reference" example:"blob:3f1c2a8e-4b9d-4a51-9d0e-6f3b2c1a7e55"`
	// Where the model came from: local, download, or the backend that restored it.
	// example: file-system-cache
	Source string `json:"source" example:"file-system-cache"`
	// Size of the model in bytes.
	// example: 1342177280
	Bytes int64 `json:"bytes" example:"1342177280"`
}

// DownloadProgress is the state of the download indicator.
type DownloadProgress struct {
	// True while a download runs.
	Active bool `json:"active"`
	// Bytes received so far.
	// example: 52428800
	Done int64 `json:"done" example:"52428800"`
	// Total bytes, or -1 when unknown.
	// example: 1342177280
	Total int64 `json:"total" example:"1342177280"`
	// Fraction complete in [0,1].
	// example: 0.039
	Fraction float64 `json:"fraction" example:"0.039"`
}

// Notices are the ambient messages shown to the user.
type Notices struct {
	// Transient error; disappears a few seconds after it was raised.
	// example: Load a model first!
	Error string `json:"error,omitempty" example:"Load a model first!"`
	// Informational line.
	// example: Cached model found in Private File System.
	Info string `json:"info,omitempty" example:"Cached model found in Private File System."`
	// Blocking alert for failures that cannot be recovered in this process.
	Alert string `json:"alert,omitempty"`
}
