package domain

// APIResponse is the envelope every REST endpoint responds with.
type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// AttachmentSignature carries the parameters a client needs for a signed
// direct upload of a chat attachment.
type AttachmentSignature struct {
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
	APIKey    string `json:"apiKey"`
	CloudName string `json:"cloudName"`
	Folder    string `json:"folder"`
	UploadURL string `json:"uploadUrl"`
}
