package engine

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tessellate-io/strata/pkg/types"
)

// idRe bounds client-supplied instance ids.
var idRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,199}$`)

// Engine is the operation facade the transport layer calls into. It wires
// the schema registry, the coercion and query machinery and the entity
// store together; it holds no per-request state.
type Engine struct {
	store    types.EntityStore
	registry *Registry
	limits   types.Limits
	log      *zap.SugaredLogger

	// now and newID are swappable for tests.
	now   func() time.Time
	newID func() string
}

// New builds an engine over the given store and registry.
func New(store types.EntityStore, registry *Registry, limits types.Limits, log *zap.SugaredLogger) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		limits:   limits,
		log:      log,
		now:      time.Now,
		newID:    generateID,
	}
}

// generateID prefers time-ordered UUIDv7 and falls back to v4 when the
// entropy source misbehaves.
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// Result is one instance plus its version token.
type Result struct {
	Entity *types.Entity
	ETag   string
}

// ListResult is a page of instances. Count is non-nil only when the
// caller asked for $inlinecount=allpages and then holds the total match
// count ignoring paging.
type ListResult struct {
	Entities []*types.Entity
	Count    *int64
}

func (e *Engine) result(ent *types.Entity) *Result {
	return &Result{Entity: ent, ETag: FormatETag(ent.Version, ent.Updated)}
}

// Schema returns the current immutable schema snapshot.
func (e *Engine) Schema() types.SchemaProvider {
	return e.registry.Snapshot()
}

// CreateEntity validates the payload against the declared schema and
// persists a new instance. The id comes from the payload's __id field when
// supplied, otherwise a fresh UUID.
func (e *Engine) CreateEntity(entityType string, payload map[string]any) (*Result, error) {
	schema := e.registry.Snapshot()
	et, ok := schema.EntityType(entityType)
	if !ok {
		return nil, types.EntitySetNotFound(entityType)
	}

	id, err := e.payloadID(payload)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = e.newID()
	}

	props, verr := e.buildProperties(schema, et, payload, nil)
	if verr != nil {
		return nil, verr
	}
	if err := e.checkUnique(et, entityType, id, props); err != nil {
		return nil, err
	}

	now := e.now()
	ent := &types.Entity{
		ID:         id,
		Type:       entityType,
		Properties: props,
		Published:  now,
		Updated:    now,
		Version:    1,
	}
	if err := e.store.Put(ent, 0); err != nil {
		return nil, err
	}
	e.log.Debugw("entity created", "type", entityType, "id", id)
	return e.result(ent), nil
}

// GetEntity retrieves one instance.
func (e *Engine) GetEntity(entityType, id string) (*Result, error) {
	if _, ok := e.registry.Snapshot().EntityType(entityType); !ok {
		return nil, types.EntitySetNotFound(entityType)
	}
	ent, found, err := e.store.Get(entityType, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.EntityNotFound(id)
	}
	return e.result(ent), nil
}

// ListEntities executes a filtered, sorted, paged listing.
func (e *Engine) ListEntities(entityType string, opts QueryOptions) (*ListResult, error) {
	et, ok := e.registry.Snapshot().EntityType(entityType)
	if !ok {
		return nil, types.EntitySetNotFound(entityType)
	}
	q, verr := BuildQuery(et, e.limits, opts)
	if verr != nil {
		return nil, verr
	}
	results, total, err := e.store.Query(entityType, q)
	if err != nil {
		return nil, err
	}
	lr := &ListResult{Entities: results}
	if q.NeedCount {
		lr.Count = &total
	}
	return lr, nil
}

// UpdateEntity replaces an instance's properties wholesale. Declared
// properties absent from the payload resolve through defaults and
// nullability as on create; dynamic properties not re-supplied are
// dropped. Requires a matching If-Match token.
func (e *Engine) UpdateEntity(entityType, id string, payload map[string]any, ifMatch string) (*Result, error) {
	return e.write(entityType, id, payload, ifMatch, false)
}

// MergeEntity overlays only the supplied fields onto the existing
// instance; everything else is retained. Requires a matching If-Match
// token.
func (e *Engine) MergeEntity(entityType, id string, payload map[string]any, ifMatch string) (*Result, error) {
	return e.write(entityType, id, payload, ifMatch, true)
}

func (e *Engine) write(entityType, id string, payload map[string]any, ifMatch string, merge bool) (*Result, error) {
	schema := e.registry.Snapshot()
	et, ok := schema.EntityType(entityType)
	if !ok {
		return nil, types.EntitySetNotFound(entityType)
	}
	cur, found, err := e.store.Get(entityType, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.EntityNotFound(id)
	}
	if perr := CheckIfMatch(ifMatch, cur.Version, cur.Updated); perr != nil {
		return nil, perr
	}
	if _, verr := e.payloadID(payload); verr != nil {
		return nil, verr
	}

	var base map[string]any
	if merge {
		base = cur.Clone().Properties
	}
	props, verr := e.buildProperties(schema, et, payload, base)
	if verr != nil {
		return nil, verr
	}
	if err := e.checkUnique(et, entityType, id, props); err != nil {
		return nil, err
	}

	next := &types.Entity{
		ID:         cur.ID,
		Type:       cur.Type,
		Properties: props,
		Published:  cur.Published,
		Updated:    e.now(),
		Version:    cur.Version + 1,
	}
	if err := e.store.Put(next, cur.Version); err != nil {
		return nil, err
	}
	e.log.Debugw("entity written", "type", entityType, "id", id, "version", next.Version, "merge", merge)
	return e.result(next), nil
}

// DeleteEntity removes an instance. Instances with live links are
// refused; the relationship must be torn down first.
func (e *Engine) DeleteEntity(entityType, id string, ifMatch string) error {
	if _, ok := e.registry.Snapshot().EntityType(entityType); !ok {
		return types.EntitySetNotFound(entityType)
	}
	cur, found, err := e.store.Get(entityType, id)
	if err != nil {
		return err
	}
	if !found {
		return types.EntityNotFound(id)
	}
	if perr := CheckIfMatch(ifMatch, cur.Version, cur.Updated); perr != nil {
		return perr
	}
	links, err := e.store.LinksOf(entityType, id, "")
	if err != nil {
		return err
	}
	if len(links) > 0 {
		return types.ConflictHasRelated(id)
	}
	if err := e.store.Delete(entityType, id, cur.Version); err != nil {
		return err
	}
	e.log.Debugw("entity deleted", "type", entityType, "id", id)
	return nil
}

// checkUnique refuses a write that would give a key or unique declared
// property a value some other instance of the type already holds. Null
// values never collide.
func (e *Engine) checkUnique(et *types.EntityType, entityType, id string, props map[string]any) error {
	for _, p := range et.Properties {
		if !p.IsKey && !p.IsUnique {
			continue
		}
		v, ok := props[p.Name]
		if !ok || v == nil {
			continue
		}
		hits, _, err := e.store.Query(entityType, &types.StoreQuery{
			Filter: &types.EqFilter{Property: p.Name, Value: v},
			Top:    2,
		})
		if err != nil {
			return err
		}
		for _, hit := range hits {
			if hit.ID != id {
				return types.ConflictDuplicateValue(p.Name)
			}
		}
	}
	return nil
}

// payloadID extracts and validates the optional __id field.
func (e *Engine) payloadID(payload map[string]any) (string, *types.Error) {
	raw, ok := payload[types.FieldID]
	if !ok {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok || !idRe.MatchString(s) {
		return "", types.RequestFieldFormatError(types.FieldID)
	}
	return s, nil
}

// buildProperties coerces a payload into the stored property map. A nil
// base means full-replacement semantics: declared properties absent from
// the payload resolve through defaults/nullability, and nothing else
// carries over. A non-nil base gives MERGE semantics: supplied fields
// overlay the base, the rest is retained as-is.
func (e *Engine) buildProperties(schema types.SchemaProvider, et *types.EntityType, payload map[string]any, base map[string]any) (map[string]any, *types.Error) {
	c := &coercer{schema: schema, limits: e.limits, now: e.now()}

	props := make(map[string]any)
	for k, v := range base {
		props[k] = v
	}

	for name, raw := range payload {
		if name == types.FieldID {
			continue
		}
		if strings.HasPrefix(name, "__") {
			return nil, types.FieldInvalidError(name)
		}
		decl := et.Property(name)
		var v any
		var err *types.Error
		if decl != nil {
			v, err = c.coerce(declOf(decl), raw)
		} else {
			if !ValidName(name) {
				return nil, types.RequestFieldFormatError(name)
			}
			v, err = c.coerceDynamic(name, raw)
		}
		if err != nil {
			return nil, err
		}
		props[name] = v
	}

	if base == nil {
		for _, p := range et.Properties {
			if _, supplied := payload[p.Name]; supplied {
				continue
			}
			v, err := c.missing(declOf(p))
			if err != nil {
				return nil, err
			}
			props[p.Name] = v
		}
	}

	if len(props) > e.limits.MaxPropertiesPerEntity {
		return nil, types.StructuralLimitExceeded(e.limits.MaxPropertiesPerEntity)
	}
	return props, nil
}
