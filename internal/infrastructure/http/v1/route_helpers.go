// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// QuoteRouteHandler defines the quote aggregate endpoints.
type QuoteRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	Transition(c *gin.Context)
	History(c *gin.Context)
	AddLot(c *gin.Context)
	AddLine(c *gin.Context)
	DeleteLine(c *gin.Context)
	AddCostItem(c *gin.Context)
}

// MarginRouteHandler defines the margin consult and mutation endpoints.
type MarginRouteHandler interface {
	Get(c *gin.Context)
	SetGlobal(c *gin.Context)
	SetLot(c *gin.Context)
	SetLine(c *gin.Context)
}

// VersionRouteHandler defines the revision, variant and comparison endpoints.
type VersionRouteHandler interface {
	CreateRevision(c *gin.Context)
	CreateVariant(c *gin.Context)
	Freeze(c *gin.Context)
	ListVersions(c *gin.Context)
	Compare(c *gin.Context)
	GetComparison(c *gin.Context)
}

// RegisterQuoteRoutes registers the quote tree routes.
//
// Lots and lines are addressed by their own id once created, so child
// routes hang off /lots and /lines rather than nesting under the quote.
func RegisterQuoteRoutes(rg *gin.RouterGroup, handler QuoteRouteHandler) {
	quotes := rg.Group("/quotes")
	quotes.GET("", handler.List)
	quotes.POST("", handler.Create)
	quotes.GET("/:id", handler.Get)
	quotes.PUT("/:id", handler.Update)
	quotes.DELETE("/:id", handler.Delete)
	quotes.POST("/:id/transitions/:action", handler.Transition)
	quotes.GET("/:id/history", handler.History)
	quotes.POST("/:id/lots", handler.AddLot)

	rg.POST("/lots/:id/lines", handler.AddLine)
	rg.DELETE("/lines/:id", handler.DeleteLine)
	rg.POST("/lines/:id/cost-items", handler.AddCostItem)
}

// RegisterMarginRoutes registers margin routes at the three levels.
func RegisterMarginRoutes(rg *gin.RouterGroup, handler MarginRouteHandler) {
	rg.GET("/quotes/:id/margins", handler.Get)
	rg.PUT("/quotes/:id/margins", handler.SetGlobal)
	rg.PUT("/lots/:id/margin", handler.SetLot)
	rg.PUT("/lines/:id/margin", handler.SetLine)
}

// RegisterVersionRoutes registers versioning and comparison routes.
func RegisterVersionRoutes(rg *gin.RouterGroup, handler VersionRouteHandler) {
	rg.POST("/quotes/:id/revisions", handler.CreateRevision)
	rg.POST("/quotes/:id/variants", handler.CreateVariant)
	rg.POST("/quotes/:id/freeze", handler.Freeze)
	rg.GET("/quotes/:id/versions", handler.ListVersions)
	rg.POST("/comparisons", handler.Compare)
	rg.GET("/comparisons/:id", handler.GetComparison)
}
