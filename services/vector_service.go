package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/GrainArc/ShpToAPI/config"
	"github.com/GrainArc/ShpToAPI/loader"
	"github.com/GrainArc/ShpToAPI/methods"
	"github.com/GrainArc/ShpToAPI/models"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// CanonicalSrid is the CRS every loaded table ends up in.
const CanonicalSrid = 4326

// ErrNoVectorTable means a resource has no recorded spatial table yet.
var ErrNoVectorTable = errors.New("resource has no vector table")

// VectorService sequences one upload through validation, extraction, load,
// post-load enforcement and metadata capture. Ingestions for the same
// resource are serialized through a singleflight group, so concurrent
// triggers share one run instead of racing the overwrite.
type VectorService struct {
	Cfg       config.Config
	Store     models.ResourceStore
	Spatial   *SpatialService
	Loader    loader.GeometryLoader
	Inspector loader.FeatureInspector

	ingest singleflight.Group
}

func NewVectorService(cfg config.Config, store models.ResourceStore, spatial *SpatialService, geometryLoader loader.GeometryLoader, inspector loader.FeatureInspector) *VectorService {
	return &VectorService{
		Cfg:       cfg,
		Store:     store,
		Spatial:   spatial,
		Loader:    geometryLoader,
		Inspector: inspector,
	}
}

// ShouldProcess is the eligibility gate: feature on, an uploaded archive in a
// shapefile-ish format, and either auto-processing or the resource flag.
func (s *VectorService) ShouldProcess(resource *models.Resource) bool {
	if !s.Cfg.Enabled {
		return false
	}
	if resource.URLType != "upload" {
		return false
	}
	format := strings.ToLower(resource.Format)
	if format != "shp" && format != "shapefile" && format != "zip" {
		if !strings.HasSuffix(strings.ToLower(resource.URL), ".zip") {
			return false
		}
	}
	if !s.Cfg.AutoProcess && !resource.FlagEnabled(s.Cfg.FlagAttribute) {
		return false
	}
	return true
}

// ProcessResource runs a full ingestion for one resource. A nil metadata with
// nil error means the resource was skipped by the eligibility gate.
func (s *VectorService) ProcessResource(ctx context.Context, resourceID string) (*models.SpatialMetadata, error) {
	result, err, _ := s.ingest.Do(resourceID, func() (interface{}, error) {
		return s.processOne(ctx, resourceID)
	})
	if err != nil {
		return nil, err
	}
	metadata, _ := result.(*models.SpatialMetadata)
	return metadata, nil
}

func (s *VectorService) processOne(ctx context.Context, resourceID string) (*models.SpatialMetadata, error) {
	resource, err := s.Store.GetResource(resourceID)
	if err != nil {
		return nil, err
	}
	if !s.ShouldProcess(resource) {
		return nil, nil
	}

	zipPath := resource.Path
	if zipPath == "" {
		return nil, errors.New("the resource file location is unknown")
	}
	info, err := os.Stat(zipPath)
	if err != nil {
		return nil, fmt.Errorf("the resource file does not exist on disk: %w", err)
	}
	if !strings.HasSuffix(strings.ToLower(zipPath), ".zip") {
		return nil, errors.New("resource must be a ZIP containing a shapefile")
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	if sizeMB > float64(s.Cfg.MaxSizeMB) {
		return nil, fmt.Errorf("%w: archive is %.1f MB, limit is %d MB",
			methods.ErrSizeLimitExceeded, sizeMB, s.Cfg.MaxSizeMB)
	}

	log.Printf("Processing shapefile for resource %s", resource.ID)

	scratchDir := filepath.Join(os.TempDir(), "shptoapi_"+uuid.New().String())
	if err := os.MkdirAll(scratchDir, os.ModePerm); err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratchDir)

	parts, err := methods.ExtractShapefile(zipPath, scratchDir)
	if err != nil {
		return nil, err
	}

	prjContent, err := os.ReadFile(parts.Prj)
	if err != nil {
		return nil, err
	}
	srid, err := methods.DetectSrid(string(prjContent))
	if err != nil {
		return nil, err
	}

	// Fail fast when the source is obviously over the limit. The database
	// count after load stays authoritative.
	preCount := s.Inspector.CountFeatures(parts.Shp)
	if preCount >= 0 && preCount > s.Cfg.MaxFeatures {
		return nil, fmt.Errorf("%w: shapefile has %d features, limit is %d",
			methods.ErrFeatureLimitExceeded, preCount, s.Cfg.MaxFeatures)
	}

	table := methods.BuildTableName(resource.ID, s.Cfg.TablePrefix)
	loadCtx, cancel := context.WithTimeout(ctx, time.Duration(s.Cfg.LoaderTimeoutSec)*time.Second)
	defer cancel()
	if err := s.Loader.Load(loadCtx, parts.Shp, s.Cfg.OgrPGDSN(), s.Cfg.Schema, table, srid); err != nil {
		return nil, err
	}

	ref := models.VectorTableRef{Schema: s.Cfg.Schema, Table: table}
	if err := s.Spatial.EnforceSrid(ref, CanonicalSrid); err != nil {
		return nil, err
	}
	if err := s.Spatial.EnsureSpatialIndex(ref); err != nil {
		return nil, err
	}

	metadata, err := s.Spatial.FetchMetadata(ref)
	if err != nil {
		return nil, err
	}
	if metadata.FeatureCount > s.Cfg.MaxFeatures {
		if dropErr := s.Spatial.DropTable(ref); dropErr != nil {
			log.Printf("Could not drop oversized table %s: %v", table, dropErr)
		}
		return nil, fmt.Errorf("%w: resulting table has %d features, limit is %d",
			methods.ErrFeatureLimitExceeded, metadata.FeatureCount, s.Cfg.MaxFeatures)
	}

	// Stored count policy: the pre-load inspector count wins when available,
	// since it reflects the archive before multi-promotion touched it. The
	// post-load count above is only the limit check.
	if preCount >= 0 {
		metadata.FeatureCount = preCount
	}
	fullTable, err := ref.FullName()
	if err != nil {
		return nil, err
	}
	metadata.Srid = CanonicalSrid
	metadata.VectorTable = fullTable
	metadata.VectorSchema = s.Cfg.Schema

	if err := s.persistMetadata(resource.ID, metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

// persistMetadata rewrites the vector attribute keys. Only those keys are
// patched, so the flag attribute and everything the host owns stay put.
func (s *VectorService) persistMetadata(resourceID string, metadata *models.SpatialMetadata) error {
	bbox := ""
	if metadata.BBox != nil {
		if encoded, err := json.Marshal(metadata.BBox); err == nil {
			bbox = string(encoded)
		}
	}
	return s.Store.PatchAttributes(resourceID, map[string]string{
		models.AttrVectorTable:  metadata.VectorTable,
		models.AttrVectorSchema: metadata.VectorSchema,
		models.AttrSrid:         strconv.Itoa(metadata.Srid),
		models.AttrBBox:         bbox,
		models.AttrGeomType:     metadata.GeomType,
		models.AttrFeatureCount: strconv.Itoa(metadata.FeatureCount),
	})
}

// SetResourceFlag flips the enable flag on a resource.
func (s *VectorService) SetResourceFlag(resourceID string, enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}
	return s.Store.PatchAttributes(resourceID, map[string]string{
		s.Cfg.FlagAttribute: value,
	})
}

// ClearVectorMetadata removes the pipeline's attribute keys from a resource.
func (s *VectorService) ClearVectorMetadata(resourceID string) error {
	return s.Store.ClearAttributes(resourceID, models.VectorAttributeKeys)
}

// VectorInfo is the stored vector state parsed back off a resource.
type VectorInfo struct {
	Ref          models.VectorTableRef
	FullTable    string
	Srid         int
	FeatureCount int // -1 when not recorded
}

// VectorInfoFor reads the recorded table reference and measurements from a
// resource's attributes.
func (s *VectorService) VectorInfoFor(resource *models.Resource) (*VectorInfo, error) {
	fullTable := resource.Attr(models.AttrVectorTable)
	if fullTable == "" {
		return nil, ErrNoVectorTable
	}
	info := &VectorInfo{
		Ref:          models.SplitTableRef(fullTable),
		FullTable:    fullTable,
		Srid:         CanonicalSrid,
		FeatureCount: -1,
	}
	if srid, err := strconv.Atoi(resource.Attr(models.AttrSrid)); err == nil {
		info.Srid = srid
	}
	if count, err := strconv.Atoi(resource.Attr(models.AttrFeatureCount)); err == nil {
		info.FeatureCount = count
	}
	return info, nil
}

// MetadataForResource measures the live table and overlays the stored values
// (stored feature count and SRID win when present).
func (s *VectorService) MetadataForResource(resource *models.Resource) (*models.SpatialMetadata, error) {
	info, err := s.VectorInfoFor(resource)
	if err != nil {
		return nil, err
	}
	metadata, err := s.Spatial.FetchMetadata(info.Ref)
	if err != nil {
		return nil, err
	}
	metadata.VectorTable = info.FullTable
	metadata.VectorSchema = info.Ref.Schema
	metadata.Srid = info.Srid
	if info.FeatureCount >= 0 {
		metadata.FeatureCount = info.FeatureCount
	}
	return metadata, nil
}

// EnsureVectorReady repairs state drift at read time: when the feature is on
// and the resource flag is set but the recorded table is gone, re-ingest
// before serving. Returns the freshest resource view.
func (s *VectorService) EnsureVectorReady(ctx context.Context, resource *models.Resource) (*models.Resource, error) {
	if !s.Cfg.Enabled || !resource.FlagEnabled(s.Cfg.FlagAttribute) {
		return resource, nil
	}

	if info, err := s.VectorInfoFor(resource); err == nil {
		exists, err := s.Spatial.TableExists(info.Ref)
		if err != nil {
			return nil, err
		}
		if exists {
			return resource, nil
		}
	}

	if _, err := s.ProcessResource(ctx, resource.ID); err != nil {
		return nil, err
	}
	return s.Store.GetResource(resource.ID)
}

// OnResourceWritten is the host's create/update hook. An ingestion failure is
// returned so the triggering write can be rejected or flagged.
func (s *VectorService) OnResourceWritten(ctx context.Context, resourceID string) error {
	if _, err := s.ProcessResource(ctx, resourceID); err != nil {
		log.Printf("Error processing shapefile for %s: %v", resourceID, err)
		return err
	}
	return nil
}

// OnResourceDeleting drops the associated spatial table. Failures are logged
// only; the owning resource is already on its way out.
func (s *VectorService) OnResourceDeleting(resourceID string) {
	resource, err := s.Store.GetResource(resourceID)
	if err != nil {
		log.Printf("Could not read resource %s before delete: %v", resourceID, err)
		return
	}
	info, err := s.VectorInfoFor(resource)
	if err != nil {
		return
	}
	if err := s.Spatial.DropTable(info.Ref); err != nil {
		log.Printf("Could not drop spatial table %s: %v", info.FullTable, err)
		return
	}
	log.Printf("Spatial table dropped: %s", info.FullTable)
}
