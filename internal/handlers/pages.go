package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/viprasethu/backend/pkg/response"
)

// Pages serves the built web client for every path that is not an API
// route. Unknown files fall back to index.html so client-side routing
// works. Without a static directory only the JSON 404 is served.
func Pages(staticDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if staticDir == "" || strings.HasPrefix(path, "/api/") || c.Request.Method != http.MethodGet {
			response.NotFound(c, "Not found")
			return
		}

		clean := filepath.Clean("/" + path)
		file := filepath.Join(staticDir, filepath.FromSlash(clean))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(filepath.Join(staticDir, "index.html"))
	}
}
