package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/totegamma/gamecatalog/internal/domain"
	"github.com/totegamma/gamecatalog/internal/schema"
)

var tracer = otel.Tracer("resource")

// ResourceOptions carries the optional collaborators of a ResourceUsecase.
type ResourceOptions struct {
	Cache  RecordCache
	Events EventPublisher
	// BaseURL prefixes links to existing resources, e.g. "http://localhost:8000".
	BaseURL string
	// MalformedIDStatus is the status used for malformed identifiers on
	// update. Zero means 400.
	MalformedIDStatus int
	// HashCost is the bcrypt cost for sensitive fields. Zero means bcrypt.DefaultCost.
	HashCost int
}

// ResourceUsecase implements list, get, create, update and delete for one
// entity type.
type ResourceUsecase struct {
	entity schema.Entity
	repo   DocumentCollection
	opts   ResourceOptions
}

func NewResourceUsecase(entity schema.Entity, repo DocumentCollection, opts ResourceOptions) *ResourceUsecase {
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.MalformedIDStatus == 0 {
		opts.MalformedIDStatus = http.StatusBadRequest
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	return &ResourceUsecase{
		entity: entity,
		repo:   repo,
		opts:   opts,
	}
}

func (uc *ResourceUsecase) Entity() schema.Entity {
	return uc.entity
}

// Link is the canonical URL of a record.
func (uc *ResourceUsecase) Link(id string) string {
	return fmt.Sprintf("%s/%s/%s", uc.opts.BaseURL, uc.entity.Name, id)
}

func (uc *ResourceUsecase) List(ctx context.Context, projection domain.Projection) ([]domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Resource.Usecase.List")
	defer span.End()
	span.SetAttributes(attribute.String("entity", uc.entity.Name))

	records, err := uc.repo.Find(ctx, projection)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "ResourceUsecase.List: repo.Find failed")
	}

	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		out = append(out, projection.Apply(r))
	}
	return out, nil
}

// Get resolves key as an identifier when it is 24 hex characters and as a
// name fragment otherwise. Fragments keep their surrounding spaces, so " "
// finds names made of several words.
func (uc *ResourceUsecase) Get(ctx context.Context, key string) (domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Resource.Usecase.Get")
	defer span.End()
	span.SetAttributes(attribute.String("entity", uc.entity.Name))

	var (
		record domain.Record
		err    error
	)
	if domain.IsObjectID(key) {
		record, err = uc.findByID(ctx, key)
	} else {
		record, err = uc.repo.SearchByName(ctx, domain.Capitalize(key))
	}

	if errors.Is(err, domain.ErrNotFound) {
		return domain.Record{}, domain.NewNotFoundError("The document was not found")
	}
	if err != nil {
		span.RecordError(err)
		return domain.Record{}, errors.Wrap(err, "ResourceUsecase.Get: lookup failed")
	}
	return record, nil
}

func (uc *ResourceUsecase) Create(ctx context.Context, body []byte) (domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Resource.Usecase.Create")
	defer span.End()
	span.SetAttributes(attribute.String("entity", uc.entity.Name))

	payload, err := uc.entity.ValidateFull(body)
	if err != nil {
		return domain.Record{}, err
	}

	name, _ := payload["name"].(string)
	if err := uc.checkNameFree(ctx, name, ""); err != nil {
		return domain.Record{}, err
	}

	fields, err := uc.seal(payload)
	if err != nil {
		return domain.Record{}, err
	}

	record, err := uc.repo.Create(ctx, fields)
	if err != nil {
		span.RecordError(err)
		return domain.Record{}, errors.Wrap(err, "ResourceUsecase.Create: repo.Create failed")
	}

	uc.publish(ctx, domain.ActionCreated, record.ID, &record)
	return record, nil
}

func (uc *ResourceUsecase) Update(ctx context.Context, id string, body []byte) (domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Resource.Usecase.Update")
	defer span.End()
	span.SetAttributes(attribute.String("entity", uc.entity.Name), attribute.String("id", id))

	payload, err := uc.entity.ValidatePartial(body)
	if err != nil {
		return domain.Record{}, err
	}

	if !domain.IsObjectID(id) {
		return domain.Record{}, domain.NewMalformedIDError(uc.opts.MalformedIDStatus)
	}

	_, err = uc.findByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Record{}, domain.NewNotFoundError("Not Found")
	}
	if err != nil {
		span.RecordError(err)
		return domain.Record{}, errors.Wrap(err, "ResourceUsecase.Update: repo.FindByID failed")
	}

	if name, ok := payload["name"].(string); ok {
		if err := uc.checkNameFree(ctx, name, id); err != nil {
			return domain.Record{}, err
		}
	}

	fields, err := uc.seal(payload)
	if err != nil {
		return domain.Record{}, err
	}

	record, err := uc.repo.Update(ctx, id, fields)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Record{}, domain.NewNotFoundError("Not Found")
	}
	if err != nil {
		span.RecordError(err)
		return domain.Record{}, errors.Wrap(err, "ResourceUsecase.Update: repo.Update failed")
	}

	uc.forget(ctx, id)
	uc.publish(ctx, domain.ActionUpdated, id, &record)
	return record, nil
}

// Delete removes the record with the given identifier. Malformed
// identifiers cannot name a record and are reported as not found.
func (uc *ResourceUsecase) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Resource.Usecase.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("entity", uc.entity.Name), attribute.String("id", id))

	notFound := domain.NewNotFoundError("Cannot delete the requested document")
	if !domain.IsObjectID(id) {
		return notFound
	}

	_, err := uc.findByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return notFound
	}
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "ResourceUsecase.Delete: repo.FindByID failed")
	}

	err = uc.repo.Delete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return notFound
	}
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "ResourceUsecase.Delete: repo.Delete failed")
	}

	uc.forget(ctx, id)
	uc.publish(ctx, domain.ActionDeleted, id, nil)
	return nil
}

// checkNameFree fails with a conflict when another record already holds name.
// Two concurrent writers can both pass this check.
func (uc *ResourceUsecase) checkNameFree(ctx context.Context, name, selfID string) error {
	existing, err := uc.repo.FindByName(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "ResourceUsecase.checkNameFree: repo.FindByName failed")
	}
	if existing.ID == selfID {
		return nil
	}

	link := uc.Link(existing.ID)
	return domain.NewConflictError(
		"Resource already exist in the data base, follow the next link to find the data: "+link,
		link,
	)
}

func (uc *ResourceUsecase) findByID(ctx context.Context, id string) (domain.Record, error) {
	key := uc.cacheKey(id)
	if uc.opts.Cache != nil {
		if record, ok := uc.opts.Cache.Get(ctx, key); ok {
			return record, nil
		}
	}

	record, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Record{}, err
	}

	if uc.opts.Cache != nil {
		uc.opts.Cache.Set(ctx, key, record)
	}
	return record, nil
}

func (uc *ResourceUsecase) forget(ctx context.Context, id string) {
	if uc.opts.Cache != nil {
		uc.opts.Cache.Delete(ctx, uc.cacheKey(id))
	}
}

func (uc *ResourceUsecase) cacheKey(id string) string {
	return uc.entity.Name + ":" + id
}

// seal hashes sensitive fields; the payload itself is left unchanged.
func (uc *ResourceUsecase) seal(payload schema.Payload) (map[string]any, error) {
	fields := make(map[string]any, len(payload))
	for k, v := range payload {
		fields[k] = v
	}

	for _, name := range uc.entity.SensitiveFieldNames() {
		plain, ok := fields[name].(string)
		if !ok {
			continue
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(plain), uc.opts.HashCost)
		if err != nil {
			return nil, errors.Wrapf(err, "ResourceUsecase.seal: hashing %s failed", name)
		}
		fields[name] = string(hashed)
	}
	return fields, nil
}

func (uc *ResourceUsecase) publish(ctx context.Context, action, id string, record *domain.Record) {
	if uc.opts.Events == nil {
		return
	}

	event := domain.ChangeEvent{
		Entity: uc.entity.Name,
		Action: action,
		ID:     id,
		Time:   time.Now().UTC(),
	}
	if record != nil {
		rendered, err := json.Marshal(uc.entity.Render(*record))
		if err != nil {
			uc.warnPublish(ctx, err)
			return
		}
		event.Record = rendered
	}

	if err := uc.opts.Events.Publish(ctx, event); err != nil {
		uc.warnPublish(ctx, err)
	}
}

func (uc *ResourceUsecase) warnPublish(ctx context.Context, err error) {
	slog.WarnContext(
		ctx, "failed to publish change event",
		slog.String("error", err.Error()),
		slog.String("entity", uc.entity.Name),
		slog.String("module", "resource"),
	)
}
