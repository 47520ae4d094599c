package domain

// Envelope is the single response shape returned by every API route, on
// success and on failure.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// OK builds a success envelope.
func OK(data any, message string) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// Failed builds a failure envelope from an error.
func Failed(err error) Envelope {
	return Envelope{
		Success: false,
		Message: ErrorMessage(err),
		Error:   ErrorDetail(err),
	}
}

// OrderRow is a latest-orders entry as shown on the dashboard overview.
type OrderRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Fallback string `json:"fallback"`
	Amount   string `json:"amount"`
	Status   string `json:"status"`
	Date     string `json:"date"`
}

// UploadResult describes a stored upload.
type UploadResult struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}
