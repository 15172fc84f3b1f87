// Package skills hosts the thin wrapper layer between callers and the
// engine: each provider's tools invoke the capture API before mutating the
// scene, then perform the mutation through the graph or asset store.
package skills

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/novafield/rewind/internal/infrastructure/monitoring"
	"github.com/novafield/rewind/internal/types"
)

// Provider is a skill implementation.
type Provider interface {
	Definition() types.Skill
	Execute(ctx context.Context, toolID string, params map[string]interface{}, sctx *types.Context) (*types.Result, error)
}

// Registry manages skill discovery and execution.
type Registry struct {
	skills  sync.Map
	metrics *monitoring.Metrics
}

// NewRegistry creates an empty skill registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// SetMetrics installs the per-call metrics sink.
func (r *Registry) SetMetrics(m *monitoring.Metrics) { r.metrics = m }

// Register adds a skill provider.
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("skill ID cannot be empty")
	}
	r.skills.Store(def.ID, provider)
	return nil
}

// Get retrieves a skill by ID.
func (r *Registry) Get(skillID string) (Provider, bool) {
	val, ok := r.skills.Load(skillID)
	if !ok {
		return nil, false
	}
	return val.(Provider), true
}

// List returns all registered skill definitions.
func (r *Registry) List(category *types.Category) []types.Skill {
	var out []types.Skill
	r.skills.Range(func(_, value interface{}) bool {
		def := value.(Provider).Definition()
		if category == nil || def.Category == *category {
			out = append(out, def)
		}
		return true
	})
	return out
}

// Execute runs one tool. Tool IDs are "<skill>.<tool>", e.g.
// "scene.object.create".
func (r *Registry) Execute(ctx context.Context, toolID string, params map[string]interface{}, sctx *types.Context) (*types.Result, error) {
	skillID, _, ok := strings.Cut(toolID, ".")
	if !ok {
		return Failure("invalid tool ID format"), fmt.Errorf("invalid tool ID format: %s", toolID)
	}
	provider, found := r.Get(skillID)
	if !found {
		return Failure(fmt.Sprintf("skill not found: %s", skillID)), fmt.Errorf("skill not found: %s", skillID)
	}
	start := time.Now()
	res, err := provider.Execute(ctx, toolID, params, sctx)
	r.metrics.RecordSkillCall(skillID, toolID, time.Since(start), err != nil || (res != nil && !res.Success))
	return res, err
}

// Stats returns registry statistics.
func (r *Registry) Stats() map[string]interface{} {
	var total, totalTools int
	categories := make(map[string]int)
	r.skills.Range(func(_, value interface{}) bool {
		def := value.(Provider).Definition()
		total++
		totalTools += len(def.Tools)
		categories[string(def.Category)]++
		return true
	})
	return map[string]interface{}{
		"total_skills": total,
		"total_tools":  totalTools,
		"categories":   categories,
	}
}
