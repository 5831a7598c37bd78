package loader

import "context"

// GeometryLoader materializes a shapefile into the spatial database under
// schema.table, reprojected to EPSG:4326. Implemented by OgrLoader; tests
// substitute fakes so no binary is invoked.
type GeometryLoader interface {
	Load(ctx context.Context, shpPath string, pgDSN string, schema string, table string, sourceSrid int) error
}

// FeatureInspector reports how many features a shapefile holds before it is
// loaded, or -1 when that cannot be determined. A missing tool or unreadable
// file degrades to -1, never to an error.
type FeatureInspector interface {
	CountFeatures(shpPath string) int
}
