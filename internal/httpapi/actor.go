package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PharmaLink/PharmaLink/internal/account"
)

const actorKey = "httpapi.actor"

// ActorRequired 从网关注入的请求头还原操作者身份。
// 鉴权（token 校验）在上游网关完成，这里只消费结果。
func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		role := account.Role(c.GetHeader("X-User-Role"))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity headers"})
			return
		}
		switch role {
		case account.RolePatient, account.RolePharmacist, account.RoleCourier, account.RoleAdmin:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown role"})
			return
		}
		c.Set(actorKey, account.Actor{UserID: userID, Role: role})
		c.Next()
	}
}

func actorFrom(c *gin.Context) account.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(account.Actor); ok {
			return a
		}
	}
	return account.Actor{}
}
