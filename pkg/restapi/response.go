package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cliparr/pkg/errno"
	"cliparr/pkg/logger"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// Success writes data with 200.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created writes data with 201.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// OK writes the bare acknowledgement used by mutation endpoints.
func OK(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Failed renders err using its errno; unknown errors become 500 without leaking details.
func Failed(c *gin.Context, err error) {
	status := errno.HTTPStatus(err)
	code, msg := errno.Public(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", map[string]interface{}{
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		})
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: msg, Code: code})
}
