package views

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/GrainArc/ShpToAPI/config"
	"github.com/GrainArc/ShpToAPI/methods"
	"github.com/GrainArc/ShpToAPI/models"
	"github.com/GrainArc/ShpToAPI/services"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
)

// VectorController maps the /vector HTTP surface onto the services. Every
// error leaves as a {"error": message} envelope; unexpected ones are logged
// in full and surfaced as a bare internal error.
type VectorController struct {
	Cfg     config.Config
	Store   models.ResourceStore
	Vector  *services.VectorService
	Spatial *services.SpatialService
}

func NewVectorController(cfg config.Config, store models.ResourceStore, vector *services.VectorService, spatial *services.SpatialService) *VectorController {
	return &VectorController{Cfg: cfg, Store: store, Vector: vector, Spatial: spatial}
}

func (vc *VectorController) errorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, methods.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, methods.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
	case errors.Is(err, methods.ErrInvalidIdentifier),
		errors.Is(err, methods.ErrUnsafeArchiveEntry),
		errors.Is(err, methods.ErrIncompleteShapefile),
		errors.Is(err, methods.ErrUnknownCrs),
		errors.Is(err, methods.ErrSizeLimitExceeded),
		errors.Is(err, methods.ErrFeatureLimitExceeded),
		errors.Is(err, methods.ErrLoaderUnavailable),
		errors.Is(err, methods.ErrLoadFailure),
		errors.Is(err, methods.ErrSpatialStore),
		errors.Is(err, services.ErrNoVectorTable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Internal error on %s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// Metadata serves GET /vector/:id/metadata.
func (vc *VectorController) Metadata(c *gin.Context) {
	resource, err := vc.readyResource(c)
	if err != nil {
		vc.errorResponse(c, err)
		return
	}
	metadata, err := vc.Vector.MetadataForResource(resource)
	if err != nil {
		vc.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, metadata)
}

// Items serves GET /vector/:id/items with optional bbox filtering and
// clamped pagination.
func (vc *VectorController) Items(c *gin.Context) {
	resource, err := vc.readyResource(c)
	if err != nil {
		vc.errorResponse(c, err)
		return
	}
	info, err := vc.Vector.VectorInfoFor(resource)
	if err != nil {
		vc.errorResponse(c, err)
		return
	}

	bbox, err := parseBBoxParam(c.Query("bbox"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit := readInt(c.Query("limit"), 100)
	offset := readInt(c.Query("offset"), 0)
	if limit > vc.Cfg.MaxItemsPerPage {
		limit = vc.Cfg.MaxItemsPerPage
	}

	features, err := vc.Spatial.FetchFeatures(info.Ref, bbox, limit, offset)
	if err != nil {
		vc.errorResponse(c, err)
		return
	}
	collection := geojson.NewFeatureCollection()
	collection.Features = features
	c.JSON(http.StatusOK, collection)
}

// Options answers CORS preflight with an empty 204.
func (vc *VectorController) Options(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// readyResource loads the resource and runs the read-time repair path.
func (vc *VectorController) readyResource(c *gin.Context) (*models.Resource, error) {
	resource, err := vc.Store.GetResource(c.Param("id"))
	if err != nil {
		return nil, err
	}
	return vc.Vector.EnsureVectorReady(c.Request.Context(), resource)
}

func parseBBoxParam(raw string) ([]float64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, errors.New("bbox must use minx,miny,maxx,maxy")
	}
	bbox := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errors.New("bbox contains non numeric values")
		}
		bbox[i] = v
	}
	return bbox, nil
}

func readInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

var panelTemplate = template.Must(template.New("panel").Parse(`<!DOCTYPE html>
<html>
<head><title>Vector API - {{.Resource.Name}}</title></head>
<body>
<h2>Vector API for {{.Resource.Name}}</h2>
<p>Status: {{if .Enabled}}enabled{{else}}disabled{{end}}</p>
{{if .Metadata}}
<ul>
<li>Table: {{.Metadata.VectorTable}}</li>
<li>Features: {{.Metadata.FeatureCount}}</li>
<li>Geometry: {{.Metadata.GeomType}}</li>
{{if .Metadata.BBox}}<li>BBox: {{.Metadata.BBox}}</li>{{end}}
</ul>
{{end}}
<form method="post">
<input type="hidden" name="action" value="{{if .Enabled}}disable{{else}}enable{{end}}"/>
<button type="submit">{{if .Enabled}}Disable{{else}}Enable{{end}}</button>
</form>
</body>
</html>
`))

// Panel serves the enable/disable status page and its POST actions.
func (vc *VectorController) Panel(c *gin.Context) {
	if c.Request.Method == http.MethodPost {
		vc.panelAction(c)
		return
	}

	resource, err := vc.readyResource(c)
	if err != nil && !vc.isRepairFailure(err) {
		vc.errorResponse(c, err)
		return
	}
	if resource == nil {
		// Repair failed but the page should still render; fall back to the
		// stored view of the resource.
		resource, err = vc.Store.GetResource(c.Param("id"))
		if err != nil {
			vc.errorResponse(c, err)
			return
		}
	}

	metadata, err := vc.Vector.MetadataForResource(resource)
	if err != nil {
		metadata = nil
	}
	var page bytes.Buffer
	err = panelTemplate.Execute(&page, gin.H{
		"Resource": resource,
		"Enabled":  resource.FlagEnabled(vc.Cfg.FlagAttribute),
		"Metadata": metadata,
	})
	if err != nil {
		vc.errorResponse(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page.Bytes())
}

// isRepairFailure separates "could not lazily re-ingest" from "could not
// even load the resource" for the panel, which still renders in the former
// case.
func (vc *VectorController) isRepairFailure(err error) bool {
	return !errors.Is(err, methods.ErrNotFound) && !errors.Is(err, methods.ErrNotAuthorized)
}

func (vc *VectorController) panelAction(c *gin.Context) {
	if !vc.authorizeEdit(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		return
	}
	resourceID := c.Param("id")
	if _, err := vc.Store.GetResource(resourceID); err != nil {
		vc.errorResponse(c, err)
		return
	}

	switch c.PostForm("action") {
	case "enable":
		if err := vc.Vector.SetResourceFlag(resourceID, true); err != nil {
			vc.errorResponse(c, err)
			return
		}
		if _, err := vc.Vector.ProcessResource(c.Request.Context(), resourceID); err != nil {
			vc.errorResponse(c, err)
			return
		}
	case "disable":
		if err := vc.Vector.SetResourceFlag(resourceID, false); err != nil {
			vc.errorResponse(c, err)
			return
		}
		vc.dropVectorTable(resourceID)
		if err := vc.Vector.ClearVectorMetadata(resourceID); err != nil {
			vc.errorResponse(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/vector/%s/panel", resourceID))
}

// authorizeEdit guards panel mutations. An empty editToken leaves the panel
// open, mirroring a host that does its own access checks upstream.
func (vc *VectorController) authorizeEdit(c *gin.Context) bool {
	if vc.Cfg.EditToken == "" {
		return true
	}
	token := c.PostForm("token")
	if token == "" {
		token = c.GetHeader("X-Edit-Token")
	}
	return token == vc.Cfg.EditToken
}

func (vc *VectorController) dropVectorTable(resourceID string) {
	resource, err := vc.Store.GetResource(resourceID)
	if err != nil {
		return
	}
	info, err := vc.Vector.VectorInfoFor(resource)
	if err != nil {
		return
	}
	if err := vc.Spatial.DropTable(info.Ref); err != nil {
		log.Printf("Could not drop table %s: %v", info.FullTable, err)
	}
}
