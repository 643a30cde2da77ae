package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voixagent/voixagent/version"
)

var startTime = time.Now()

type infoResponse struct {
	Service string `json:"service"`
	version.Info
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// Info returns a handler that reports the service build and uptime.
func Info(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, infoResponse{
			Service:   serviceName,
			Info:      version.Get(),
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
