package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/GrainArc/ShpToAPI/methods"
	"github.com/GrainArc/ShpToAPI/models"
	"github.com/paulmach/orb/geojson"
	"gorm.io/gorm"
)

// SpatialService owns every SQL statement touching the vector tables. Table
// and index names are sanitized identifiers; all values travel as bound
// parameters.
type SpatialService struct {
	DB *gorm.DB
}

func NewSpatialService(db *gorm.DB) *SpatialService {
	return &SpatialService{DB: db}
}

func storeError(err error) error {
	return fmt.Errorf("%w: %v", methods.ErrSpatialStore, err)
}

// FetchMetadata measures extent, sampled geometry type and row count for one
// table in a single transaction.
func (s *SpatialService) FetchMetadata(ref models.VectorTableRef) (*models.SpatialMetadata, error) {
	fullTable, err := ref.FullName()
	if err != nil {
		return nil, err
	}

	var extentRow struct {
		Extent *string
	}
	var typeRow struct {
		GeomType *string
	}
	var count int64
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		sql := fmt.Sprintf(`SELECT ST_Extent(geom)::text AS extent FROM %s`, fullTable)
		if err := tx.Raw(sql).Scan(&extentRow).Error; err != nil {
			return err
		}
		sql = fmt.Sprintf(`SELECT GeometryType(geom) AS geom_type FROM %s WHERE geom IS NOT NULL LIMIT 1`, fullTable)
		if err := tx.Raw(sql).Scan(&typeRow).Error; err != nil {
			return err
		}
		sql = fmt.Sprintf(`SELECT COUNT(*) FROM %s`, fullTable)
		return tx.Raw(sql).Scan(&count).Error
	})
	if err != nil {
		return nil, storeError(err)
	}

	metadata := &models.SpatialMetadata{FeatureCount: int(count)}
	if extentRow.Extent != nil {
		metadata.BBox = ParseExtent(*extentRow.Extent)
	}
	if typeRow.GeomType != nil {
		metadata.GeomType = *typeRow.GeomType
	}
	return metadata, nil
}

// ParseExtent reads PostGIS "BOX(minx miny,maxx maxy)" text into four floats.
// Malformed text yields nil rather than an error so an odd extent never sinks
// a whole metadata call.
func ParseExtent(extent string) []float64 {
	bounds := strings.TrimSpace(extent)
	bounds = strings.TrimPrefix(bounds, "BOX(")
	bounds = strings.TrimSuffix(bounds, ")")
	corners := strings.Split(bounds, ",")
	if len(corners) != 2 {
		return nil
	}
	values := make([]float64, 0, 4)
	for _, corner := range corners {
		fields := strings.Fields(corner)
		if len(fields) != 2 {
			return nil
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil
			}
			values = append(values, v)
		}
	}
	// [minx miny maxx maxy]
	return []float64{values[0], values[1], values[2], values[3]}
}

type featureRow struct {
	GeoJson    []byte `gorm:"column:geojson"`
	Properties []byte `gorm:"column:properties"`
}

// FetchFeatures returns one page of features as GeoJSON, optionally filtered
// by an EPSG:4326 envelope. Ordering is whatever the database scans.
func (s *SpatialService) FetchFeatures(ref models.VectorTableRef, bbox []float64, limit int, offset int) ([]*geojson.Feature, error) {
	fullTable, err := ref.FullName()
	if err != nil {
		return nil, err
	}

	where := ""
	args := make([]interface{}, 0, 6)
	if len(bbox) == 4 {
		where = `WHERE geom && ST_MakeEnvelope(?, ?, ?, ?, 4326)`
		args = append(args, bbox[0], bbox[1], bbox[2], bbox[3])
	}
	args = append(args, limit, offset)

	sql := fmt.Sprintf(`
		SELECT
			ST_AsGeoJSON(geom) AS geojson,
			to_jsonb(record) - 'geom' AS properties
		FROM %s AS record
		%s
		LIMIT ? OFFSET ?`, fullTable, where)

	var rows []featureRow
	if err := s.DB.Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, storeError(err)
	}

	features := make([]*geojson.Feature, 0, len(rows))
	for _, row := range rows {
		feature := geojson.NewFeature(nil)
		if len(row.GeoJson) > 0 {
			if geom, err := geojson.UnmarshalGeometry(row.GeoJson); err == nil {
				feature.Geometry = geom.Geometry()
			}
		}
		if len(row.Properties) > 0 {
			var props map[string]interface{}
			if err := json.Unmarshal(row.Properties, &props); err == nil {
				for key, value := range props {
					feature.Properties[key] = value
				}
			}
		}
		features = append(features, feature)
	}
	return features, nil
}

// EnsureSpatialIndex creates the GiST index when missing and refreshes
// planner statistics.
func (s *SpatialService) EnsureSpatialIndex(ref models.VectorTableRef) error {
	fullTable, err := ref.FullName()
	if err != nil {
		return err
	}
	indexName, err := methods.SafeIdentifier(ref.Table+"_geom_gist", "index")
	if err != nil {
		return err
	}

	createIndexSql := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (geom)`, indexName, fullTable)
	if err := s.DB.Exec(createIndexSql).Error; err != nil {
		return storeError(err)
	}
	if err := s.DB.Exec(fmt.Sprintf(`ANALYZE %s`, fullTable)).Error; err != nil {
		return storeError(err)
	}
	return nil
}

// EnforceSrid repoints the geometry column at the given SRID, rewriting any
// geometries the loader left untagged.
func (s *SpatialService) EnforceSrid(ref models.VectorTableRef, srid int) error {
	fullTable, err := ref.FullName()
	if err != nil {
		return err
	}
	sql := fmt.Sprintf(
		`ALTER TABLE %s ALTER COLUMN geom TYPE geometry(Geometry, %d) USING ST_SetSRID(geom, %d)`,
		fullTable, srid, srid)
	if err := s.DB.Exec(sql).Error; err != nil {
		return storeError(err)
	}
	return nil
}

func (s *SpatialService) DropTable(ref models.VectorTableRef) error {
	fullTable, err := ref.FullName()
	if err != nil {
		return err
	}
	if err := s.DB.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, fullTable)).Error; err != nil {
		return storeError(err)
	}
	return nil
}

func (s *SpatialService) TableExists(ref models.VectorTableRef) (bool, error) {
	fullTable, err := ref.FullName()
	if err != nil {
		return false, err
	}
	var exists bool
	if err := s.DB.Raw(`SELECT to_regclass(?) IS NOT NULL`, fullTable).Scan(&exists).Error; err != nil {
		return false, storeError(err)
	}
	return exists, nil
}
