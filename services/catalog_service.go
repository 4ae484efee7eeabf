package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/futureguard/api/model"
	"github.com/futureguard/api/utils/cache"
	"gorm.io/gorm"
)

const (
	catalogCacheKey = "field_catalog:v1"
	catalogCacheTTL = 5 * time.Minute
)

// CatalogField is the in-memory view of one field definition, with JSON
// columns unpacked for the pipeline.
type CatalogField struct {
	FieldKey     string      `json:"field_key"`
	DisplayName  string      `json:"display_name"`
	Type         string      `json:"type"`
	Required     bool        `json:"required"`
	UseInML      bool        `json:"use_in_ml"`
	Category     string      `json:"category"`
	Synonyms     []string    `json:"synonyms"`
	DefaultValue interface{} `json:"default_value"`
}

// Catalog is the full field catalog loaded for one ingestion call. It is
// immutable once loaded; every pipeline stage works off the same snapshot.
type Catalog struct {
	Fields []CatalogField `json:"fields"`
}

// Field returns the definition for a field key, or nil.
func (c *Catalog) Field(key string) *CatalogField {
	for i := range c.Fields {
		if c.Fields[i].FieldKey == key {
			return &c.Fields[i]
		}
	}
	return nil
}

// RequiredFields returns the catalog entries marked required.
func (c *Catalog) RequiredFields() []CatalogField {
	var out []CatalogField
	for _, f := range c.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// AliasMap builds the normalized alias -> field lookup used by the header
// matcher and the standardizer: field key, display name, and every synonym.
// First writer wins on alias collisions, in catalog order.
func (c *Catalog) AliasMap() map[string]*CatalogField {
	aliases := make(map[string]*CatalogField)
	put := func(alias string, f *CatalogField) {
		key := NormalizeHeader(alias)
		if key == "" {
			return
		}
		if _, exists := aliases[key]; !exists {
			aliases[key] = f
		}
	}

	for i := range c.Fields {
		f := &c.Fields[i]
		put(f.FieldKey, f)
		put(f.DisplayName, f)
		for _, s := range f.Synonyms {
			put(s, f)
		}
	}
	return aliases
}

// CatalogService loads the field catalog, with a short Redis cache in front
// of the database since the catalog is read on every upload but rarely
// changes.
type CatalogService struct {
	db    *gorm.DB
	cache *cache.RedisCache
}

// NewCatalogService creates a new catalog service. cache may be nil, in which
// case every load hits the database.
func NewCatalogService(db *gorm.DB, c *cache.RedisCache) *CatalogService {
	return &CatalogService{db: db, cache: c}
}

// Load returns the current catalog snapshot.
func (s *CatalogService) Load(ctx context.Context) (*Catalog, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, catalogCacheKey); err == nil {
			var cat Catalog
			if err := json.Unmarshal([]byte(cached), &cat); err == nil {
				return &cat, nil
			}
			// Corrupt cache entry: fall through to the database.
			log.Printf("[CATALOG] discarding unreadable cache entry")
		}
	}

	var defs []model.FieldDefinition
	if err := s.db.WithContext(ctx).Order("id").Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("failed to load field catalog: %w", err)
	}

	cat := &Catalog{Fields: make([]CatalogField, 0, len(defs))}
	for _, d := range defs {
		f := CatalogField{
			FieldKey:    d.FieldKey,
			DisplayName: d.DisplayName,
			Type:        d.Type,
			Required:    d.Required,
			UseInML:     d.UseInML,
			Category:    d.Category,
		}
		if len(d.Synonyms) > 0 {
			if err := json.Unmarshal(d.Synonyms, &f.Synonyms); err != nil {
				return nil, fmt.Errorf("field %s has malformed synonyms: %w", d.FieldKey, err)
			}
		}
		if len(d.DefaultValue) > 0 {
			if err := json.Unmarshal(d.DefaultValue, &f.DefaultValue); err != nil {
				return nil, fmt.Errorf("field %s has malformed default: %w", d.FieldKey, err)
			}
		}
		cat.Fields = append(cat.Fields, f)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(cat); err == nil {
			if err := s.cache.Set(ctx, catalogCacheKey, payload, catalogCacheTTL); err != nil {
				log.Printf("[CATALOG] failed to cache catalog: %v", err)
			}
		}
	}

	return cat, nil
}

// Invalidate drops the cached catalog snapshot.
func (s *CatalogService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, catalogCacheKey)
}
