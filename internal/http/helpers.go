// README: HTTP error mapping helpers.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"valetlink/internal/conn"
	"valetlink/internal/modules/geofence"
	"valetlink/internal/modules/location"
	"valetlink/internal/modules/request"
)

func writeGeofenceDenied(c *gin.Context, dec geofence.Decision) {
	c.JSON(http.StatusForbidden, gin.H{
		"allowed":    false,
		"distance_m": dec.DistanceMeters,
		"error":      "outside the allowed zone for this action",
	})
}

func writeActionError(c *gin.Context, err error) {
	var locErr *location.Error
	if errors.As(err, &locErr) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":       locErr.Error(),
			"remediation": locErr.Remediation(),
		})
		return
	}

	switch {
	case errors.Is(err, request.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
	case errors.Is(err, request.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "request is not in a state that allows this action"})
	case errors.Is(err, request.ErrChannelUnavailable), errors.Is(err, conn.ErrNotConnected):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "channel not connected"})
	default:
		writeActionKind(c, err)
	}
}

func writeActionKind(c *gin.Context, err error) {
	var actionErr *request.ActionError
	if !errors.As(err, &actionErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	switch actionErr.Kind {
	case request.ActionConflict:
		c.JSON(http.StatusConflict, gin.H{"error": actionErr.UserMessage()})
	case request.ActionValidation:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": actionErr.UserMessage()})
	case request.ActionNetwork:
		c.JSON(http.StatusBadGateway, gin.H{"error": actionErr.UserMessage()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": actionErr.UserMessage()})
	}
}
