package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/budgetvault-backend/internal/platform/apierr"
)

// RespondAPIError writes err with its carried status. 5xx messages are not
// echoed to the client.
func RespondAPIError(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae == nil {
		RespondError(c, http.StatusInternalServerError, "internal", nil)
		return
	}
	_ = c.Error(err)
	if ae.Status >= http.StatusInternalServerError {
		c.JSON(ae.Status, ErrorEnvelope{Error: APIError{Message: "internal error", Code: ae.Code}})
		return
	}
	RespondError(c, ae.Status, ae.Code, ae.Err)
}
