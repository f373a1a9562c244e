package middlewares

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"wastewise-be/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a panic into a 500 envelope. The stack trace is always
// logged and only echoed to the client when exposeStack is set.
func Recovery(logger *zap.Logger, exposeStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			stack := string(debug.Stack())
			RequestLogger(c, logger).Error("panic recovered",
				zap.String("panic", fmt.Sprint(rec)),
				zap.String("stack", stack),
			)
			resp := models.NewErrorResponse("Internal server error")
			if exposeStack {
				resp.Stack = stack
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
		}()
		c.Next()
	}
}
