package odoo

import (
	"context"
	"fmt"
)

// SearchRead returns the records matching domain
func (c *Client) SearchRead(ctx context.Context, sess Session, model string, domain Domain, opts Options) ([]Record, error) {
	reply, err := c.Execute(ctx, sess, model, "search_read", []any{domain.ToRPC()}, opts.kwargs())
	if err != nil {
		return nil, err
	}
	return AsRecords(reply)
}

// SearchReadOne returns the first matching record or ErrRecordNotFound
func (c *Client) SearchReadOne(ctx context.Context, sess Session, model string, domain Domain, opts Options) (Record, error) {
	opts.Limit = 1
	records, err := c.SearchRead(ctx, sess, model, domain, opts)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records[0], nil
}

// Search returns the ids matching domain
func (c *Client) Search(ctx context.Context, sess Session, model string, domain Domain, opts Options) ([]int, error) {
	opts.Fields = nil
	reply, err := c.Execute(ctx, sess, model, "search", []any{domain.ToRPC()}, opts.kwargs())
	if err != nil {
		return nil, err
	}
	return AsIntSlice(reply), nil
}

// SearchCount counts the records matching domain
func (c *Client) SearchCount(ctx context.Context, sess Session, model string, domain Domain) (int, error) {
	reply, err := c.Execute(ctx, sess, model, "search_count", []any{domain.ToRPC()}, nil)
	if err != nil {
		return 0, err
	}
	return AsInt(reply), nil
}

// Read reads records by id
func (c *Client) Read(ctx context.Context, sess Session, model string, ids []int, fields []string) ([]Record, error) {
	kwargs := map[string]any{}
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}
	reply, err := c.Execute(ctx, sess, model, "read", []any{ids}, kwargs)
	if err != nil {
		return nil, err
	}
	return AsRecords(reply)
}

// ReadOne reads a single record, returning ErrRecordNotFound when it is gone
func (c *Client) ReadOne(ctx context.Context, sess Session, model string, id int, fields []string) (Record, error) {
	// read() on a deleted id faults with MissingError; search first so the
	// not-found case stays a plain sentinel.
	ids, err := c.Search(ctx, sess, model, Where("id", "=", id), Options{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrRecordNotFound
	}
	records, err := c.Read(ctx, sess, model, ids, fields)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records[0], nil
}

// Create creates one record and returns its id
func (c *Client) Create(ctx context.Context, sess Session, model string, vals map[string]any) (int, error) {
	reply, err := c.Execute(ctx, sess, model, "create", []any{vals}, nil)
	if err != nil {
		return 0, err
	}
	// Odoo 17+ may answer with a list even for a single dict
	if ids := AsIntSlice(reply); len(ids) > 0 {
		return ids[0], nil
	}
	id := AsInt(reply)
	if id == 0 {
		return 0, fmt.Errorf("%w: create returned %v", ErrInvalidResponse, reply)
	}
	return id, nil
}

// Write updates records
func (c *Client) Write(ctx context.Context, sess Session, model string, ids []int, vals map[string]any) error {
	_, err := c.Execute(ctx, sess, model, "write", []any{ids, vals}, nil)
	return err
}

// Unlink deletes records
func (c *Client) Unlink(ctx context.Context, sess Session, model string, ids []int) error {
	_, err := c.Execute(ctx, sess, model, "unlink", []any{ids}, nil)
	return err
}

// ReadGroup aggregates records. aggregates use Odoo's "field:agg" notation.
func (c *Client) ReadGroup(ctx context.Context, sess Session, model string, domain Domain, aggregates, groupBy []string, opts Options) ([]Record, error) {
	kwargs := map[string]any{"lazy": false}
	if opts.Limit > 0 {
		kwargs["limit"] = opts.Limit
	}
	if opts.Offset > 0 {
		kwargs["offset"] = opts.Offset
	}
	if opts.Order != "" {
		kwargs["orderby"] = opts.Order
	}
	if len(opts.Context) > 0 {
		kwargs["context"] = opts.Context
	}
	reply, err := c.Execute(ctx, sess, model, "read_group",
		[]any{domain.ToRPC(), aggregates, groupBy}, kwargs)
	if err != nil {
		return nil, err
	}
	return AsRecords(reply)
}

// FieldsGet returns field metadata keyed by field name
func (c *Client) FieldsGet(ctx context.Context, sess Session, model string, attributes []string) (map[string]Record, error) {
	kwargs := map[string]any{}
	if len(attributes) > 0 {
		kwargs["attributes"] = attributes
	}
	reply, err := c.Execute(ctx, sess, model, "fields_get", []any{}, kwargs)
	if err != nil {
		return nil, err
	}
	raw, ok := reply.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: fields_get returned %T", ErrInvalidResponse, reply)
	}
	out := make(map[string]Record, len(raw))
	for name, meta := range raw {
		m, _ := meta.(map[string]any)
		out[name] = Record(m)
	}
	return out, nil
}

// CallMethod invokes a public method on a set of records
func (c *Client) CallMethod(ctx context.Context, sess Session, model, method string, ids []int, args []any, kwargs map[string]any) (any, error) {
	full := make([]any, 0, len(args)+1)
	full = append(full, ids)
	full = append(full, args...)
	return c.Execute(ctx, sess, model, method, full, kwargs)
}

// CallModelMethod invokes a public model-level method
func (c *Client) CallModelMethod(ctx context.Context, sess Session, model, method string, args []any, kwargs map[string]any) (any, error) {
	return c.Execute(ctx, sess, model, method, args, kwargs)
}

// CheckAccessRights asks Odoo whether the session user may perform operation
// ("read", "write", "create", "unlink") on model.
func (c *Client) CheckAccessRights(ctx context.Context, sess Session, model, operation string) (bool, error) {
	reply, err := c.Execute(ctx, sess, model, "check_access_rights",
		[]any{operation}, map[string]any{"raise_exception": false})
	if err != nil {
		return false, err
	}
	allowed, _ := reply.(bool)
	return allowed, nil
}
