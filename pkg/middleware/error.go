package middleware

import (
	"talentflow/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders the last error recorded on the context, if a handler chose
// to collect errors instead of writing a response itself.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil || c.Writer.Written() {
			return
		}

		code, body := errutil.ToHTTP(err.Err)
		c.JSON(code, body)
	}
}
