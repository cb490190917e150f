// Package web serves the single embedded page of the measurement UI.
package web

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var indexHTML []byte

func RegisterRoutes(r gin.IRoutes) {
	r.GET("/", Index)
}

func Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}
