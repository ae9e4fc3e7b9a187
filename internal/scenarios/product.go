// Package scenarios holds the built-in scenarios selectable from the CLI.
package scenarios

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	vhttp "github.com/wesleyorama2/volley/internal/http"
	"github.com/wesleyorama2/volley/internal/loadtest"
	"github.com/wesleyorama2/volley/pkg/jsonschema"
)

// Check names reported by Product.
const (
	CheckCreated       = "POST /products 201 Created"
	CheckGetOK         = "GET /products/:id 200 OK"
	CheckGetName       = "GET /products/:id matches name"
	CheckGetSchema     = "GET /products/:id matches schema"
	CheckListOK        = "GET /products 200 OK"
	CheckListBody      = "GET /products has body"
	CheckAuditOK       = "GET /audit-logs 200 OK"
	CheckAuditIsArray  = "GET /audit-logs is array"
	RequestIDHeader    = "X-Request-ID"
	DefaultProductPath = "/api/products"
	DefaultAuditPath   = "/api/audit-logs"
)

const productSchema = `{
	"type": "object",
	"required": ["id", "name", "price", "quantity"],
	"properties": {
		"id": {"type": "integer", "minimum": 1},
		"name": {"type": "string", "minLength": 1},
		"description": {"type": ["string", "null"]},
		"price": {"type": "number", "minimum": 0},
		"quantity": {"type": "integer", "minimum": 0}
	}
}`

// ProductConfig tunes the product lifecycle scenario.
type ProductConfig struct {
	// ThinkMin and ThinkMax bound the random pause after each iteration
	ThinkMin time.Duration
	ThinkMax time.Duration

	// AuditLogs adds a read of the audit trail to every iteration
	AuditLogs bool

	ProductPath string
	AuditPath   string
}

// DefaultProductConfig pauses 100-600ms between iterations.
func DefaultProductConfig() ProductConfig {
	return ProductConfig{
		ThinkMin:    100 * time.Millisecond,
		ThinkMax:    600 * time.Millisecond,
		ProductPath: DefaultProductPath,
		AuditPath:   DefaultAuditPath,
	}
}

// ProductPayload is the body sent on create.
type ProductPayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// Product creates a product, reads it back, lists the catalogue and
// optionally reads the audit trail.
type Product struct {
	cfg    ProductConfig
	schema *jsonschema.Schema
}

// NewProduct builds the scenario. Empty paths fall back to the defaults.
// A target base URL that already ends in the product path is used as the
// product collection itself, so URL=http://host/api/products works as is.
func NewProduct(cfg ProductConfig) *Product {
	if cfg.ProductPath == "" {
		cfg.ProductPath = DefaultProductPath
	}
	if cfg.AuditPath == "" {
		cfg.AuditPath = DefaultAuditPath
	}
	if cfg.ThinkMax < cfg.ThinkMin {
		cfg.ThinkMax = cfg.ThinkMin
	}
	return &Product{cfg: cfg, schema: jsonschema.MustCompile(productSchema)}
}

// Run executes one iteration.
func (p *Product) Run(ctx context.Context, it *loadtest.Iteration) error {
	payload := NewProductPayload()
	requestID := uuid.New().String()
	logger := it.Logger().With(zap.String("request_id", requestID))

	ep := p.endpointsFor(it.HTTP().BaseURL())

	id, ok := p.create(ctx, it, ep, payload, requestID, logger)
	if ok {
		p.get(ctx, it, ep, id, payload.Name, requestID)
	}

	p.list(ctx, it, ep, requestID)

	if p.cfg.AuditLogs {
		p.audit(ctx, it, ep, requestID)
	}

	it.SetThinkTime(p.thinkTime())
	return nil
}

// endpoints holds the request paths for one target. Products may be empty,
// meaning the base URL itself.
type endpoints struct {
	products string
	audit    string
}

func (p *Product) endpointsFor(baseURL string) endpoints {
	ep := endpoints{products: p.cfg.ProductPath, audit: p.cfg.AuditPath}

	u, err := url.Parse(baseURL)
	if err != nil {
		return ep
	}
	basePath := strings.TrimRight(u.Path, "/")
	collection := "/" + strings.Trim(p.cfg.ProductPath, "/")
	if collection == "/" || !strings.HasSuffix(basePath, collection) {
		return ep
	}

	ep.products = ""
	if strings.HasPrefix(p.cfg.AuditPath, "http://") || strings.HasPrefix(p.cfg.AuditPath, "https://") {
		return ep
	}
	root := *u
	root.RawQuery = ""
	root.Path = strings.TrimSuffix(basePath, collection) + "/" + strings.TrimLeft(p.cfg.AuditPath, "/")
	ep.audit = root.String()
	return ep
}

func (p *Product) create(ctx context.Context, it *loadtest.Iteration, ep endpoints, payload ProductPayload, requestID string, logger *zap.Logger) (int64, bool) {
	req := vhttp.NewRequest(http.MethodPost, ep.products).
		WithName("POST " + p.cfg.ProductPath).
		WithHeader(RequestIDHeader, requestID).
		WithBody(payload)

	resp := it.HTTP().Do(ctx, req)
	it.Check(CheckCreated, resp.StatusCode == http.StatusCreated)

	id, err := resp.JSON("id")
	if err != nil {
		logger.Debug("create returned no JSON", zap.Int("status", resp.StatusCode), zap.Error(err))
		return 0, false
	}
	if !id.Exists || id.Null || id.Int() < 1 {
		return 0, false
	}
	return id.Int(), true
}

func (p *Product) get(ctx context.Context, it *loadtest.Iteration, ep endpoints, id int64, name, requestID string) {
	req := vhttp.NewRequest(http.MethodGet, ep.products+"/"+strconv.FormatInt(id, 10)).
		WithName("GET " + p.cfg.ProductPath + "/{id}").
		WithHeader(RequestIDHeader, requestID)

	resp := it.HTTP().Do(ctx, req)
	it.Check(CheckGetOK, resp.StatusCode == http.StatusOK)

	got, err := resp.JSON("name")
	it.Check(CheckGetName, err == nil && got.Exists && got.String() == name)
	it.Check(CheckGetSchema, resp.Err == nil && p.schema.Validate(resp.Body()) == nil)
}

func (p *Product) list(ctx context.Context, it *loadtest.Iteration, ep endpoints, requestID string) {
	req := vhttp.NewRequest(http.MethodGet, ep.products).
		WithName("GET " + p.cfg.ProductPath).
		WithHeader(RequestIDHeader, requestID)

	resp := it.HTTP().Do(ctx, req)
	it.Check(CheckListOK, resp.StatusCode == http.StatusOK)
	it.Check(CheckListBody, len(resp.Body()) > 0)
}

func (p *Product) audit(ctx context.Context, it *loadtest.Iteration, ep endpoints, requestID string) {
	req := vhttp.NewRequest(http.MethodGet, ep.audit).
		WithName("GET " + p.cfg.AuditPath).
		WithHeader(RequestIDHeader, requestID)

	resp := it.HTTP().Do(ctx, req)
	it.Check(CheckAuditOK, resp.StatusCode == http.StatusOK)

	root, err := resp.JSON("")
	it.Check(CheckAuditIsArray, err == nil && root.IsArray())
}

func (p *Product) thinkTime() time.Duration {
	spread := p.cfg.ThinkMax - p.cfg.ThinkMin
	if spread <= 0 {
		return p.cfg.ThinkMin
	}
	return p.cfg.ThinkMin + time.Duration(rand.Int63n(int64(spread)+1))
}

// NewProductPayload returns a random product to create.
func NewProductPayload() ProductPayload {
	return ProductPayload{
		Name:        fmt.Sprintf("Load Test Product %d", rand.Intn(100000)),
		Description: "Created by volley load test",
		Price:       math.Round(rand.Float64()*100*100) / 100,
		Quantity:    rand.Intn(100),
	}
}
