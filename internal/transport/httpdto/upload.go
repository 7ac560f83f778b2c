package httpdto

// AvatarUploadRequest is used for POST /avatar/upload-url
type AvatarUploadRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Size        int64  `json:"size,omitempty"`
}

type AvatarUploadResponse struct {
	UploadURL string            `json:"uploadUrl"`
	FileURL   string            `json:"fileUrl"`
	Key       string            `json:"key"`
	Headers   map[string]string `json:"headers,omitempty"`
}
