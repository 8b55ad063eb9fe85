// Package openapi builds the gateway's OpenAPI 3 document from the mounted
// routes.
package openapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
)

// Version is the OpenAPI version of the generated document
const Version = "3.0.3"

// Security scheme names
const (
	BearerAuth = "bearerAuth"
	APIKeyAuth = "apiKeyAuth"
)

// Operation is one route to document
type Operation struct {
	Method  string
	Path    string // gin syntax, e.g. /api/:model/:id
	Tag     string
	Summary string
	Secured bool
}

// Tag describes an operation group
type Tag struct {
	Name        string
	Description string
}

// Tags are emitted in this order
var Tags = []Tag{
	{"Authentication", "Sign-in, token refresh and API keys"},
	{"Discovery", "Installed models, fields and methods"},
	{"CRUD Operations", "Search, read, create, update and delete any model"},
	{"Custom Methods", "Call public model and record methods"},
	{"Accounting", "Invoices, payments, reconciliation and financial reports"},
	{"Business", "Sales, inventory and customer dashboards"},
	{"Webhooks", "Change notifications"},
	{"Database", "Database maintenance protected by the master password"},
	{"System", "Health and service information"},
}

// Config carries document metadata
type Config struct {
	Title        string
	Version      string
	Description  string
	ServerURL    string
	CommonModels []string
}

// Build returns the document for ops plus CRUD paths for cfg.CommonModels
func Build(cfg Config, ops []Operation) *openapi3.T {
	if cfg.Title == "" {
		cfg.Title = "Odoo REST API"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:       cfg.Title,
			Version:     cfg.Version,
			Description: cfg.Description,
		},
		Paths:      openapi3.NewPaths(),
		Components: components(),
	}
	for _, t := range Tags {
		doc.Tags = append(doc.Tags, &openapi3.Tag{Name: t.Name, Description: t.Description})
	}
	if cfg.ServerURL != "" {
		doc.Servers = openapi3.Servers{{URL: cfg.ServerURL}}
	}

	for _, op := range ops {
		addOperation(doc, op)
	}
	for _, model := range cfg.CommonModels {
		for _, op := range modelOperations(model) {
			addOperation(doc, op)
		}
	}
	return doc
}

// Handler serves doc as JSON
func Handler(doc *openapi3.T) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	}
}

// ConvertPath turns gin parameters into OpenAPI templates and returns the
// parameter names in order. Catch-all segments are kept as a parameter.
func ConvertPath(ginPath string) (string, []string) {
	segments := strings.Split(ginPath, "/")
	var params []string
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if seg[0] == ':' || seg[0] == '*' {
			name := seg[1:]
			params = append(params, name)
			segments[i] = "{" + name + "}"
		}
	}
	return strings.Join(segments, "/"), params
}

func modelOperations(model string) []Operation {
	base := "/api/" + model
	return []Operation{
		{Method: http.MethodGet, Path: base, Tag: "CRUD Operations", Summary: fmt.Sprintf("List %s records", model), Secured: true},
		{Method: http.MethodPost, Path: base, Tag: "CRUD Operations", Summary: fmt.Sprintf("Create a %s record", model), Secured: true},
		{Method: http.MethodGet, Path: base + "/:id", Tag: "CRUD Operations", Summary: fmt.Sprintf("Read a %s record", model), Secured: true},
		{Method: http.MethodPut, Path: base + "/:id", Tag: "CRUD Operations", Summary: fmt.Sprintf("Update a %s record", model), Secured: true},
		{Method: http.MethodDelete, Path: base + "/:id", Tag: "CRUD Operations", Summary: fmt.Sprintf("Delete a %s record", model), Secured: true},
	}
}

func addOperation(doc *openapi3.T, op Operation) {
	path, params := ConvertPath(op.Path)
	item := doc.Paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(path, item)
	}

	operation := openapi3.NewOperation()
	operation.Tags = []string{op.Tag}
	operation.Summary = op.Summary
	operation.OperationID = operationID(op.Method, path)

	for _, name := range params {
		operation.AddParameter(openapi3.NewPathParameter(name).WithSchema(paramSchema(path, name)))
	}
	if op.Method == http.MethodGet && isListPath(params, path) {
		for _, p := range listParameters() {
			operation.AddParameter(p)
		}
	}
	switch op.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		operation.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithJSONSchema(openapi3.NewObjectSchema().WithAnyAdditionalProperties()),
		}
	}

	operation.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, responseRef("Success", "Response")),
		openapi3.WithStatus(http.StatusBadRequest, responseRef("Invalid request", "Error")),
		openapi3.WithStatus(http.StatusInternalServerError, responseRef("Unexpected error", "Error")),
	)
	if len(params) > 0 {
		operation.Responses.Set("404", responseRef("Not found", "Error"))
	}
	if op.Secured {
		operation.Responses.Set("401", responseRef("Missing or invalid credentials", "Error"))
		operation.Security = openapi3.NewSecurityRequirements().
			With(openapi3.NewSecurityRequirement().Authenticate(BearerAuth)).
			With(openapi3.NewSecurityRequirement().Authenticate(APIKeyAuth))
	}

	item.SetOperation(op.Method, operation)
}

// isListPath matches the generic and generated model collection paths
func isListPath(params []string, path string) bool {
	if len(params) == 1 && params[0] == "model" {
		return strings.HasSuffix(path, "{model}")
	}
	return len(params) == 0 && strings.HasPrefix(path, "/api/") && strings.Count(path, "/") == 2 && strings.Contains(path, ".")
}

func listParameters() []*openapi3.Parameter {
	return []*openapi3.Parameter{
		openapi3.NewQueryParameter("domain").WithDescription("JSON domain").WithSchema(openapi3.NewStringSchema()),
		openapi3.NewQueryParameter("fields").WithDescription("JSON list of field names").WithSchema(openapi3.NewStringSchema()),
		openapi3.NewQueryParameter("limit").WithSchema(openapi3.NewIntegerSchema().WithMin(1)),
		openapi3.NewQueryParameter("offset").WithSchema(openapi3.NewIntegerSchema().WithMin(0)),
		openapi3.NewQueryParameter("order").WithSchema(openapi3.NewStringSchema()),
	}
}

// uuidCollections hold resources addressed by UUID rather than Odoo id
var uuidCollections = []string{"/keys/{id}", "/jobs/{id}"}

func paramSchema(path, name string) *openapi3.Schema {
	for _, suffix := range uuidCollections {
		if name == "id" && strings.HasSuffix(path, suffix) {
			return openapi3.NewUUIDSchema()
		}
	}
	if name == "id" || strings.HasSuffix(name, "_id") {
		return openapi3.NewIntegerSchema()
	}
	return openapi3.NewStringSchema()
}

func responseRef(description, schema string) *openapi3.ResponseRef {
	desc := description
	return &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &desc,
			Content: openapi3.NewContentWithJSONSchemaRef(
				openapi3.NewSchemaRef("#/components/schemas/"+schema, nil),
			),
		},
	}
}

func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.TrimRight(b.String(), "_")
}

func components() *openapi3.Components {
	errorInfo := openapi3.NewObjectSchema().
		WithProperty("code", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("request_id", openapi3.NewStringSchema())
	errorInfo.Required = []string{"code", "message"}

	meta := openapi3.NewObjectSchema().
		WithProperty("total", openapi3.NewInt64Schema()).
		WithProperty("count", openapi3.NewIntegerSchema()).
		WithProperty("limit", openapi3.NewIntegerSchema()).
		WithProperty("offset", openapi3.NewIntegerSchema())

	response := openapi3.NewObjectSchema().
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("data", &openapi3.Schema{}).
		WithProperty("meta", meta)
	response.Required = []string{"success"}

	errResponse := openapi3.NewObjectSchema().
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("error", errorInfo).
		WithProperty("status", openapi3.NewIntegerSchema())
	errResponse.Required = []string{"success", "error", "status"}

	apiKey := openapi3.NewSecurityScheme().WithType("apiKey").WithIn("header").WithName("X-API-Key")
	bearer := openapi3.NewJWTSecurityScheme()

	return &openapi3.Components{
		Schemas: openapi3.Schemas{
			"Response": openapi3.NewSchemaRef("", response),
			"Error":    openapi3.NewSchemaRef("", errResponse),
		},
		SecuritySchemes: openapi3.SecuritySchemes{
			BearerAuth: &openapi3.SecuritySchemeRef{Value: bearer},
			APIKeyAuth: &openapi3.SecuritySchemeRef{Value: apiKey},
		},
	}
}

// SortedPaths lists the document's paths, mainly for tests and logs
func SortedPaths(doc *openapi3.T) []string {
	paths := make([]string, 0, doc.Paths.Len())
	for p := range doc.Paths.Map() {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
