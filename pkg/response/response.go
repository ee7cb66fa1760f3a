package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the envelope every API response uses.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Fail sends an error envelope with the given status.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Body{Success: false, Error: msg})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, msg string) { Fail(c, http.StatusBadRequest, msg) }

// Unauthorized sends 401 and stops the handler chain.
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Body{Success: false, Error: msg})
}

// NotFound sends 404.
func NotFound(c *gin.Context, msg string) { Fail(c, http.StatusNotFound, msg) }

// ServiceUnavailable sends 503. Clients may retry.
func ServiceUnavailable(c *gin.Context, msg string) { Fail(c, http.StatusServiceUnavailable, msg) }

// Internal sends 500.
func Internal(c *gin.Context, msg string) { Fail(c, http.StatusInternalServerError, msg) }
