package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusflow/ums-api/internal/service"
	appErrors "github.com/campusflow/ums-api/pkg/errors"
	"github.com/campusflow/ums-api/pkg/response"
)

// respondError renders an error envelope and counts conflict responses.
func respondError(c *gin.Context, metrics *service.MetricsService, err error) {
	appErr := appErrors.FromError(err)
	if metrics != nil && appErr.Status == http.StatusConflict {
		metrics.RecordConflict(appErr.Code)
	}
	response.Error(c, appErr)
}

func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		size = 20
	}
	return page, size
}
