package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/GrainArc/ShpToAPI/methods"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Attribute keys the vector pipeline owns on a resource. Every other key in
// the attribute map belongs to whoever created the resource.
const (
	AttrVectorTable  = "vector_table"
	AttrVectorSchema = "vector_schema"
	AttrSrid         = "srid"
	AttrBBox         = "bbox"
	AttrGeomType     = "geom_type"
	AttrFeatureCount = "feature_count"
)

// VectorAttributeKeys lists the keys cleared when a resource is disabled.
var VectorAttributeKeys = []string{
	AttrVectorTable, AttrVectorSchema, AttrSrid, AttrBBox, AttrGeomType, AttrFeatureCount,
}

// Resource is one hosted upload. Attributes is a free-form string map; the
// pipeline reads and rewrites only its own keys.
type Resource struct {
	ID         string `gorm:"primary_key;size:64"`
	Name       string
	URL        string
	URLType    string // "upload" for files stored locally
	Format     string
	Path       string // on-disk location of the uploaded archive
	Attributes datatypes.JSONMap
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Attr returns an attribute as a string, empty when absent.
func (r *Resource) Attr(key string) string {
	if r.Attributes == nil {
		return ""
	}
	value, ok := r.Attributes[key]
	if !ok || value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

// FlagEnabled reports whether the named flag attribute is truthy.
func (r *Resource) FlagEnabled(flagName string) bool {
	return methods.AsBool(r.Attr(flagName))
}

// ResourceStore is the slice of the hosting platform the pipeline talks to:
// read a resource, rewrite some of its attributes.
type ResourceStore interface {
	GetResource(id string) (*Resource, error)
	PatchAttributes(id string, updates map[string]string) error
	ClearAttributes(id string, keys []string) error
}

// GormResourceStore keeps resources in the main database.
type GormResourceStore struct {
	DB *gorm.DB
}

func NewGormResourceStore(db *gorm.DB) *GormResourceStore {
	return &GormResourceStore{DB: db}
}

func (s *GormResourceStore) GetResource(id string) (*Resource, error) {
	var resource Resource
	err := s.DB.First(&resource, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", methods.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &resource, nil
}

func (s *GormResourceStore) PatchAttributes(id string, updates map[string]string) error {
	resource, err := s.GetResource(id)
	if err != nil {
		return err
	}
	if resource.Attributes == nil {
		resource.Attributes = datatypes.JSONMap{}
	}
	for key, value := range updates {
		resource.Attributes[key] = value
	}
	return s.DB.Model(resource).Update("attributes", resource.Attributes).Error
}

func (s *GormResourceStore) ClearAttributes(id string, keys []string) error {
	resource, err := s.GetResource(id)
	if err != nil {
		return err
	}
	if resource.Attributes == nil {
		return nil
	}
	for _, key := range keys {
		delete(resource.Attributes, key)
	}
	return s.DB.Model(resource).Update("attributes", resource.Attributes).Error
}
