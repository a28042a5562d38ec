package response

import "github.com/gin-gonic/gin"

const (
	MsgChannelMismatch = "Input image must have 3 channels (RGB)."
	MsgInvalidImage    = "Invalid image file."
	MsgMissingImage    = "No image file provided."
	MsgImageTooLarge   = "Image too large."
	MsgPredictFailed   = "Prediction failed."
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{Error: message})
}
