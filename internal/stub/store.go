package stub

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Product is the resource served under /api/products.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// Audit operations and statuses.
const (
	OpCreate = "CREATE"
	OpRead   = "READ"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"

	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// AuditLog records one write against the product store.
type AuditLog struct {
	ID             int64     `json:"id"`
	EventID        string    `json:"eventId"`
	EventType      string    `json:"eventType"`
	EntityType     string    `json:"entityType"`
	EntityID       *int64    `json:"entityId"`
	Operation      string    `json:"operation"`
	Status         string    `json:"status"`
	HTTPStatusCode int       `json:"httpStatusCode"`
	DurationMs     int64     `json:"durationMs"`
	RequestID      string    `json:"requestId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store is an in-memory product catalogue with an audit trail.
type Store struct {
	mu       sync.RWMutex
	products map[int64]Product
	nextID   int64

	audit       []AuditLog
	nextAuditID int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{products: make(map[int64]Product)}
}

// Create assigns an id and stores p.
func (s *Store) Create(p Product) Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p.ID = s.nextID
	s.products[p.ID] = p
	return p
}

// Get returns the product with id.
func (s *Store) Get(id int64) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	return p, ok
}

// List returns all products ordered by id.
func (s *Store) List() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Search returns products whose name contains name, case-insensitively.
func (s *Store) Search(name string) []Product {
	needle := strings.ToLower(name)

	var out []Product
	for _, p := range s.List() {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	if out == nil {
		out = []Product{}
	}
	return out
}

// Update replaces the product with id.
func (s *Store) Update(id int64, p Product) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return Product{}, false
	}
	p.ID = id
	s.products[id] = p
	return p, true
}

// Delete removes the product with id.
func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return false
	}
	delete(s.products, id)
	return true
}

// DeleteAll removes every product and returns how many there were.
func (s *Store) DeleteAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.products)
	s.products = make(map[int64]Product)
	return n
}

// RecordAudit appends an audit entry, filling its ids and timestamp.
func (s *Store) RecordAudit(entry AuditLog) AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAuditID++
	entry.ID = s.nextAuditID
	entry.EventID = uuid.New().String()
	entry.EntityType = "Product"
	entry.CreatedAt = time.Now().UTC()
	s.audit = append(s.audit, entry)
	return entry
}

// AuditLogs returns the audit trail in insertion order.
func (s *Store) AuditLogs() []AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AuditLog, len(s.audit))
	copy(out, s.audit)
	return out
}

// ClearAudit drops the audit trail.
func (s *Store) ClearAudit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = nil
}
