package scenarios

import (
	"context"
	"net/http"
	"time"

	vhttp "github.com/wesleyorama2/volley/internal/http"
	"github.com/wesleyorama2/volley/internal/loadtest"
)

// CheckStatus200 is reported by Get.
const CheckStatus200 = "status is 200"

// Get issues a single GET against the target and pauses for a second.
type Get struct {
	// Path is appended to the target URL. Empty requests the URL as is.
	Path      string
	ThinkTime time.Duration
}

// NewGet returns a Get of the target URL with a one second pause.
func NewGet() *Get {
	return &Get{ThinkTime: time.Second}
}

// Run executes one iteration.
func (g *Get) Run(ctx context.Context, it *loadtest.Iteration) error {
	resp := it.HTTP().Do(ctx, vhttp.NewRequest(http.MethodGet, g.Path))
	it.Check(CheckStatus200, resp.StatusCode == http.StatusOK)
	it.SetThinkTime(g.ThinkTime)
	return nil
}
