package routers

import (
	"github.com/GrainArc/ShpToAPI/views"
	"github.com/gin-gonic/gin"
)

// Cors stamps the configured origin on every response in the group.
func Cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Next()
	}
}

// VectorRouters mounts the /vector surface.
func VectorRouters(r *gin.Engine, vc *views.VectorController, corsOrigin string) {
	vectorRouter := r.Group("/vector", Cors(corsOrigin))
	{
		vectorRouter.GET(":id/metadata", vc.Metadata)
		vectorRouter.OPTIONS(":id/metadata", vc.Options)
		vectorRouter.GET(":id/items", vc.Items)
		vectorRouter.OPTIONS(":id/items", vc.Options)
		vectorRouter.GET(":id/panel", vc.Panel)
		vectorRouter.POST(":id/panel", vc.Panel)
	}
}
