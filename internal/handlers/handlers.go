package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"crew-connect/internal/changeorder"
	"crew-connect/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// Handler serves the JSON API.
type Handler struct {
	db       *gorm.DB
	workflow *changeorder.Workflow
	log      *zap.Logger
}

func New(db *gorm.DB, workflow *changeorder.Workflow, log *zap.Logger) *Handler {
	return &Handler{db: db, workflow: workflow, log: log}
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// actor reads the signed-in user from the session.
func actor(c *gin.Context) changeorder.Actor {
	sess := sessions.Default(c)
	uid, _ := sess.Get("user_id").(uint)
	roleStr, _ := sess.Get("role").(string)
	return changeorder.Actor{UserID: uid, Role: models.UserRole(roleStr)}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// parseDate accepts nil or an empty string as "no date".
func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, changeorder.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, changeorder.ErrValidation), errors.Is(err, changeorder.ErrUnsupportedEntity):
		status = http.StatusBadRequest
	case errors.Is(err, changeorder.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, changeorder.ErrInvalidTransition), errors.Is(err, changeorder.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
