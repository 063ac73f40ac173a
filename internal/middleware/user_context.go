package middleware

import (
	"crew-connect/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const CurrentUserKey = "CurrentUser"

// InjectUser loads the signed-in user, if any, into the gin context.
func InjectUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uid, ok := sess.Get("user_id").(uint); ok && uid > 0 {
			var user models.User
			if err := db.First(&user, uid).Error; err == nil {
				c.Set(CurrentUserKey, user)
			} else {
				// account removed since login
				sess.Clear()
				_ = sess.Save()
			}
		}

		c.Next()
	}
}
