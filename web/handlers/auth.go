package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	v1 "uamvh.cloud/escolar/escolar/v1"
	escolar "uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/security"
	"uamvh.cloud/escolar/web/common"
	"uamvh.cloud/escolar/web/middlewares"
)

// Login signs in against the school API, keeps the API session for the
// offline client and answers with a gateway token.
func (ep *Endpoint) Login(c *gin.Context) {
	var body escolar.LoginDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	user, err := ep.session.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		if v1.StatusCode(err) == 0 {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusUnauthorized, common.NewErrorResponse(v1.UserMessage(err, "Credenciales inválidas")))
		return
	}

	identity := security.IdentityOf(user)
	res := gin.H{"user": identity}
	if ep.secret != "" {
		token, err := security.CreateIdentityToken(identity, ep.secret, ep.ttl)
		if err != nil {
			writeError(c, err)
			return
		}
		res["token"] = token
		c.SetCookie(middlewares.SessionCookie, token, int(ep.ttl.Seconds()), "/", "", false, true)
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(res))
}

func (ep *Endpoint) Me(c *gin.Context) {
	if identity, ok := middlewares.CurrentIdentity(c); ok {
		c.JSON(http.StatusOK, common.NewSuccessResponse(identity))
		return
	}
	user, err := ep.session.Current(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(security.IdentityOf(user)))
}
