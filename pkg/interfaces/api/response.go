package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
)

// Response codes carried in the body next to the HTTP status
const (
	CodeOK           = 0
	CodeBadRequest   = 10001
	CodeNotFound     = 10002
	CodeInvalidState = 10004
	CodeConflict     = 10005
	CodeInternal     = 50001
)

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": CodeOK, "message": "success", "data": data})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"code": CodeBadRequest, "message": err.Error()})
}

// fail maps domain errors onto HTTP statuses. The outermost typed error decides: a
// ConflictError caused by missing reference data stays a 422.
func fail(c *gin.Context, err error) {
	var (
		verr *entities.ValidationError
		serr *entities.InvalidStateError
		cerr *entities.ConflictError
	)
	switch {
	case errors.As(err, &serr):
		c.JSON(http.StatusConflict, gin.H{"code": CodeInvalidState, "message": err.Error(), "data": gin.H{
			"entity":    serr.Entity,
			"id":        serr.ID,
			"current":   serr.Current,
			"requested": serr.Requested,
		}})
	case errors.As(err, &cerr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": CodeConflict, "message": err.Error()})
	case errors.As(err, &verr) && errors.Is(verr, entities.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": CodeNotFound, "message": err.Error()})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"code": CodeBadRequest, "message": err.Error(), "data": gin.H{"field": verr.Field}})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": CodeInternal, "message": "internal error"})
	}
}
