package context

import "github.com/gin-gonic/gin"

// ActorFromGin returns the authenticated actor on a gin request: a user
// session or a badge reader device. Both values are empty before the auth
// middleware ran.
func ActorFromGin(c *gin.Context) (string, string) {
	if c == nil || c.Request == nil {
		return "", ""
	}
	return ActorFromContext(c.Request.Context())
}
