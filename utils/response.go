package utils

import "github.com/gin-gonic/gin"

// JSONResponse defines the uniform structure for API responses. Clients key
// off Success; Code carries the application error code for programmatic
// handling.
type JSONResponse struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, JSONResponse{
		Success: true,
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.JSON(status, JSONResponse{
		Success: false,
		Code:    code,
		Error:   message,
	})
}
