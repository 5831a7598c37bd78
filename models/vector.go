package models

import (
	"strings"

	"github.com/GrainArc/ShpToAPI/methods"
)

// VectorTableRef names a spatial table. Both parts are validated before any
// SQL is built from them.
type VectorTableRef struct {
	Schema string
	Table  string
}

// FullName returns schema.table (or just table), sanitized.
func (r VectorTableRef) FullName() (string, error) {
	return methods.BuildFullTable(r.Schema, r.Table)
}

// SplitTableRef parses a stored "schema.table" value back into a ref.
func SplitTableRef(fullTable string) VectorTableRef {
	if schema, table, ok := strings.Cut(fullTable, "."); ok {
		return VectorTableRef{Schema: schema, Table: table}
	}
	return VectorTableRef{Table: fullTable}
}

// SpatialMetadata is what ingestion measures and the metadata endpoint
// serves. BBox is [minx, miny, maxx, maxy] in EPSG:4326, nil when the table
// is empty or the extent was unreadable.
type SpatialMetadata struct {
	BBox         []float64 `json:"bbox"`
	GeomType     string    `json:"geom_type"`
	FeatureCount int       `json:"feature_count"`
	Srid         int       `json:"srid"`
	VectorTable  string    `json:"vector_table"`
	VectorSchema string    `json:"vector_schema"`
}
