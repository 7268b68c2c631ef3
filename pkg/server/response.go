package server

import "github.com/gin-gonic/gin"

const (
	errInvalidJSON      = "invalid JSON body"
	errInvalidForm      = "invalid form data"
	errInvalidMultipart = "invalid multipart form data"
	errFileNotFound     = "file not found in form data"
	errFileSizeExceeded = "file size exceeds limit"
	errInvalidFileType  = "only text/plain files are allowed"
	errNotPlainText     = "file does not look like plain text"
	errNotFound         = "not found"
	errInternal         = "internal error"
	errUnavailable      = "backend unavailable"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(c *gin.Context, status int, message string, detail ...any) {
	resp := errorResponse{Error: message}
	if len(detail) > 0 {
		switch v := detail[0].(type) {
		case string:
			resp.Details = v
		case error:
			if v != nil {
				resp.Details = v.Error()
			}
		}
	}
	c.JSON(status, resp)
}
