package server

import (
	"cmp"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

const (
	maxFileBytes = 1 << 20 // 1MB
	nullByte     = 0x00
	defaultLimit = 10

	// JavaScript's safe integer range, matched so every snapshot of this
	// service parses numeric inputs identically.
	maxSafeInt = 1<<53 - 1
)

func (s *Server) registerParamsRoutes(g *gin.RouterGroup) {
	g.GET("/search", handleSearchParams)
	g.GET("/url/:dynamic", handleURLParams)
	g.GET("/header", handleHeaderParams)
	g.POST("/body", handleBodyParams)
	g.GET("/cookie", handleCookieParams)
	g.POST("/form", handleFormParams)
	g.POST("/file", handleFileParams)
}

func parseSafeInt(value string) (int, bool) {
	if value == "" || strings.Contains(value, ".") {
		return 0, false
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < -maxSafeInt || n > maxSafeInt {
		return 0, false
	}
	return int(n), true
}

func handleSearchParams(c *gin.Context) {
	q := cmp.Or(strings.TrimSpace(c.Query("q")), "none")

	limit := defaultLimit
	if n, ok := parseSafeInt(c.Query("limit")); ok {
		limit = n
	}

	c.JSON(http.StatusOK, gin.H{"search": q, "limit": limit})
}

func handleURLParams(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"dynamic": c.Param("dynamic")})
}

func handleHeaderParams(c *gin.Context) {
	header := cmp.Or(strings.TrimSpace(c.GetHeader("X-Custom-Header")), "none")
	c.JSON(http.StatusOK, gin.H{"header": header})
}

func handleBodyParams(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, errInvalidJSON, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"body": body})
}

func handleCookieParams(c *gin.Context) {
	cookie := "none"
	if value, err := c.Cookie("foo"); err == nil {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			cookie = trimmed
		}
	}

	c.SetCookie("bar", "12345", 10, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"cookie": cookie})
}

func handleFormParams(c *gin.Context) {
	contentType := strings.ToLower(c.ContentType())
	if contentType != "application/x-www-form-urlencoded" && contentType != "multipart/form-data" {
		writeError(c, http.StatusBadRequest, errInvalidForm, "expected form content type")
		return
	}

	name := cmp.Or(strings.TrimSpace(c.PostForm("name")), "none")

	age := 0
	if n, ok := parseSafeInt(strings.TrimSpace(c.PostForm("age"))); ok {
		age = n
	}

	c.JSON(http.StatusOK, gin.H{"name": name, "age": age})
}

func handleFileParams(c *gin.Context) {
	if !strings.HasPrefix(strings.ToLower(c.ContentType()), "multipart/form-data") {
		writeError(c, http.StatusBadRequest, errInvalidMultipart, "expected multipart content type")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "too large") {
			writeError(c, http.StatusRequestEntityTooLarge, errFileSizeExceeded)
			return
		}
		writeError(c, http.StatusBadRequest, errFileNotFound, err)
		return
	}
	if fileHeader.Size > maxFileBytes {
		writeError(c, http.StatusRequestEntityTooLarge, errFileSizeExceeded)
		return
	}

	// The declared part type is the only signal; an absent or non-text/plain
	// type is rejected outright.
	declared := strings.ToLower(fileHeader.Header.Get("Content-Type"))
	if !strings.HasPrefix(declared, "text/plain") {
		writeError(c, http.StatusUnsupportedMediaType, errInvalidFileType, "received mimetype: "+cmp.Or(declared, "unknown"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, errInvalidMultipart, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxFileBytes+1))
	if err != nil {
		writeError(c, http.StatusBadRequest, errInternal, err)
		return
	}
	if len(data) > maxFileBytes {
		writeError(c, http.StatusRequestEntityTooLarge, errFileSizeExceeded)
		return
	}
	if slices.Contains(data, byte(nullByte)) || !utf8.Valid(data) {
		writeError(c, http.StatusUnsupportedMediaType, errNotPlainText)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filename": fileHeader.Filename,
		"size":     len(data),
		"content":  string(data),
	})
}
