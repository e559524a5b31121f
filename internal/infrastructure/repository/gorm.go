package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/gamecatalog/internal/domain"
	"github.com/totegamma/gamecatalog/internal/infrastructure/database/models"
	"github.com/totegamma/gamecatalog/internal/usecase"
)

// GormStore keeps every collection in the documents table.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormStore(db *gorm.DB, timeout time.Duration) *GormStore {
	return &GormStore{db: db, timeout: timeout}
}

func (s *GormStore) Collection(name string) usecase.DocumentCollection {
	return &GormCollection{db: s.db, name: name, timeout: s.timeout}
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type GormCollection struct {
	db      *gorm.DB
	name    string
	timeout time.Duration
}

func (c *GormCollection) scoped(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx).Where("collection = ?", c.name)
}

// Find returns every document in creation order. Projection is applied by
// the caller.
func (c *GormCollection) Find(ctx context.Context, projection domain.Projection) ([]domain.Record, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var docs []models.Document
	err := c.scoped(ctx).Order("c_date asc").Order("id asc").Find(&docs).Error
	if err != nil {
		return nil, errors.Wrap(err, "GormCollection.Find")
	}

	records := make([]domain.Record, 0, len(docs))
	for _, doc := range docs {
		record, err := toRecord(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *GormCollection) FindByID(ctx context.Context, id string) (domain.Record, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var doc models.Document
	err := c.scoped(ctx).Where("id = ?", id).Take(&doc).Error
	if err != nil {
		return domain.Record{}, translate(err, "GormCollection.FindByID")
	}
	return toRecord(doc)
}

func (c *GormCollection) FindByName(ctx context.Context, name string) (domain.Record, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var doc models.Document
	err := c.scoped(ctx).
		Where("name_key = ?", domain.NameKey(name)).
		Order("c_date asc").Order("id asc").
		Take(&doc).Error
	if err != nil {
		return domain.Record{}, translate(err, "GormCollection.FindByName")
	}
	return toRecord(doc)
}

func (c *GormCollection) SearchByName(ctx context.Context, fragment string) (domain.Record, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var doc models.Document
	err := c.scoped(ctx).
		Where(`name_key LIKE ? ESCAPE '\'`, likePattern(strings.ToLower(fragment))).
		Order("c_date asc").Order("id asc").
		Take(&doc).Error
	if err != nil {
		return domain.Record{}, translate(err, "GormCollection.SearchByName")
	}
	return toRecord(doc)
}

func (c *GormCollection) Create(ctx context.Context, fields map[string]any) (domain.Record, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(fields)
	if err != nil {
		return domain.Record{}, errors.Wrap(err, "GormCollection.Create: marshal body")
	}

	name, _ := fields["name"].(string)
	doc := models.Document{
		ID:         domain.NewID(),
		Collection: c.name,
		Name:       name,
		NameKey:    domain.NameKey(name),
		Body:       string(body),
	}

	if err := c.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return domain.Record{}, errors.Wrap(err, "GormCollection.Create")
	}
	return toRecord(doc)
}

// Update merges fields into the stored body inside a transaction.
func (c *GormCollection) Update(ctx context.Context, id string, fields map[string]any) (domain.Record, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var updated models.Document
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.Where("collection = ? AND id = ?", c.name, id).Take(&doc).Error; err != nil {
			return err
		}

		current, err := decodeBody(doc.Body)
		if err != nil {
			return err
		}
		for k, v := range fields {
			current[k] = v
		}

		body, err := json.Marshal(current)
		if err != nil {
			return err
		}

		doc.Body = string(body)
		if name, ok := fields["name"].(string); ok {
			doc.Name = name
			doc.NameKey = domain.NameKey(name)
		}

		if err := tx.Model(&doc).Select("body", "name", "name_key", "m_date").Updates(&doc).Error; err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return domain.Record{}, translate(err, "GormCollection.Update")
	}
	return toRecord(updated)
}

func (c *GormCollection) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	result := c.db.WithContext(ctx).
		Where("collection = ? AND id = ?", c.name, id).
		Delete(&models.Document{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "GormCollection.Delete")
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func translate(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return errors.Wrap(err, op)
}

func decodeBody(body string) (map[string]any, error) {
	fields := map[string]any{}
	if body == "" {
		return fields, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, errors.Wrap(err, "decoding document body")
	}
	return fields, nil
}

func toRecord(doc models.Document) (domain.Record, error) {
	fields, err := decodeBody(doc.Body)
	if err != nil {
		return domain.Record{}, err
	}
	delete(fields, domain.IDField)
	return domain.Record{ID: doc.ID, Fields: fields}, nil
}
