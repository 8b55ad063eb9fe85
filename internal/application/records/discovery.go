package records

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/cache"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

// Discovery defaults
const (
	DefaultModelLimit = 100
	DiscoveryTTL      = 10 * time.Minute
)

var fieldAttributes = []string{"type", "string", "help", "required", "readonly"}

// ORM methods every model answers, split by whether they need record ids
var (
	modelLevelMethods = []string{
		"create", "default_get", "fields_get", "name_create", "name_search",
		"read_group", "search", "search_count", "search_read",
	}
	recordLevelMethods = []string{
		"action_archive", "action_unarchive", "copy", "read", "unlink", "write",
	}
)

// Discovery introspects models, fields and methods of a database
type Discovery struct {
	odoo   Odoo
	cache  cache.DiscoveryCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewDiscovery creates a discovery service. A nil cache disables caching.
func NewDiscovery(odooClient Odoo, c cache.DiscoveryCache, logger *zap.Logger) *Discovery {
	return &Discovery{odoo: odooClient, cache: c, ttl: DiscoveryTTL, logger: logger}
}

// Models lists non-transient models whose technical name matches search
func (d *Discovery) Models(ctx context.Context, sess odoo.Session, search string, limit int) ([]ModelInfo, error) {
	if limit <= 0 {
		limit = DefaultModelLimit
	}
	key := "models:" + search + ":" + strconv.Itoa(limit)
	var out []ModelInfo
	if d.cached(ctx, sess.DB, key, &out) {
		return out, nil
	}

	domain := odoo.Where("transient", "=", false)
	if search != "" {
		domain = domain.And("model", "ilike", search)
	}
	recs, err := d.odoo.SearchRead(ctx, sess, odoo.ModelIrModel, domain, odoo.Options{
		Fields: []string{"model", "name", "info"},
		Limit:  limit,
		Order:  "model",
	})
	if err != nil {
		return nil, err
	}
	out = make([]ModelInfo, 0, len(recs))
	for _, r := range recs {
		out = append(out, ModelInfo{Model: r.String("model"), Name: r.String("name"), Info: r.String("info")})
	}
	d.store(ctx, sess.DB, key, out)
	return out, nil
}

// Fields describes the fields of model, sorted by name
func (d *Discovery) Fields(ctx context.Context, sess odoo.Session, model string) (*FieldsResult, error) {
	key := "fields:" + model
	var out FieldsResult
	if d.cached(ctx, sess.DB, key, &out) {
		return &out, nil
	}

	defs, err := d.odoo.FieldsGet(ctx, sess, model, fieldAttributes)
	if err != nil {
		return nil, err
	}
	fields := make([]FieldInfo, 0, len(defs))
	for name, def := range defs {
		fields = append(fields, FieldInfo{
			Name:     name,
			Type:     def.String("type"),
			String:   def.String("string"),
			Help:     def.String("help"),
			Required: def.Bool("required"),
			Readonly: def.Bool("readonly"),
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	out = FieldsResult{Model: model, Fields: fields, FieldCount: len(fields)}
	d.store(ctx, sess.DB, key, out)
	return &out, nil
}

// Methods lists the public methods of model: object buttons found in its
// form views followed by the ORM builtins.
func (d *Discovery) Methods(ctx context.Context, sess odoo.Session, model string) (*MethodsResult, error) {
	key := "methods:" + model
	var out MethodsResult
	if d.cached(ctx, sess.DB, key, &out) {
		return &out, nil
	}

	// fields_get fails on unknown models, which gives the caller a 404
	if _, err := d.odoo.FieldsGet(ctx, sess, model, []string{"type"}); err != nil {
		return nil, err
	}

	views, err := d.odoo.SearchRead(ctx, sess, odoo.ModelIrUIView,
		odoo.Where("model", "=", model).And("type", "=", "form"),
		odoo.Options{Fields: []string{"arch"}})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var methods []MethodInfo
	for _, v := range views {
		buttons, err := ObjectButtons(v.String("arch"))
		if err != nil {
			d.logger.Debug("Skipping unparsable view", zap.String("model", model), zap.Int("view_id", v.ID()), zap.Error(err))
			continue
		}
		for _, b := range buttons {
			if seen[b.Name] || strings.HasPrefix(b.Name, "_") {
				continue
			}
			seen[b.Name] = true
			methods = append(methods, b)
		}
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })

	for _, name := range builtinMethods() {
		if !seen[name] {
			seen[name] = true
			methods = append(methods, describeMethod(name, false))
		}
	}

	out = MethodsResult{Model: model, Methods: methods, MethodCount: len(methods)}
	d.store(ctx, sess.DB, key, out)
	return &out, nil
}

// Method describes a single method of model
func (d *Discovery) Method(ctx context.Context, sess odoo.Session, model, method string) (*MethodInfo, error) {
	if method == "" {
		return nil, shared.NewInvalidInputError("Method name is required")
	}
	if strings.HasPrefix(method, "_") {
		info := describeMethod(method, false)
		return &info, nil
	}
	res, err := d.Methods(ctx, sess, model)
	if err != nil {
		return nil, err
	}
	for _, m := range res.Methods {
		if m.Name == method {
			return &m, nil
		}
	}
	info := describeMethod(method, false)
	return &info, nil
}

// ObjectButtons extracts <button type="object"> entries from a view arch
func ObjectButtons(arch string) ([]MethodInfo, error) {
	if strings.TrimSpace(arch) == "" {
		return nil, nil
	}
	dec := xml.NewDecoder(strings.NewReader(arch))
	dec.Strict = false

	var out []MethodInfo
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "button" {
			continue
		}
		var name, kind, label string
		for _, a := range el.Attr {
			switch a.Name.Local {
			case "name":
				name = a.Value
			case "type":
				kind = a.Value
			case "string":
				label = a.Value
			}
		}
		if kind != "object" || name == "" {
			continue
		}
		info := describeMethod(name, true)
		info.Label = label
		out = append(out, info)
	}
}

func describeMethod(name string, discovered bool) MethodInfo {
	return MethodInfo{
		Name:       name,
		IsPrivate:  strings.HasPrefix(name, "_"),
		ModelLevel: slices.Contains(modelLevelMethods, name),
		Discovered: discovered,
	}
}

func builtinMethods() []string {
	out := make([]string, 0, len(modelLevelMethods)+len(recordLevelMethods))
	out = append(out, recordLevelMethods...)
	out = append(out, modelLevelMethods...)
	sort.Strings(out)
	return out
}

func (d *Discovery) cached(ctx context.Context, db, key string, dest any) bool {
	if d.cache == nil {
		return false
	}
	ok, err := d.cache.Get(ctx, db, key, dest)
	if err != nil {
		d.logger.Warn("Discovery cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (d *Discovery) store(ctx context.Context, db, key string, value any) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Set(ctx, db, key, value, d.ttl); err != nil {
		d.logger.Warn("Discovery cache write failed", zap.String("key", key), zap.Error(err))
	}
}
