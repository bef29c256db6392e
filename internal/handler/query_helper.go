package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func queryIntPtr(c *gin.Context, name string) *int {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func queryBoolPtr(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}

func queryDatePtr(c *gin.Context, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &d
}

func queryPage(c *gin.Context) (int, int) {
	page := 1
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	size := 20
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}
