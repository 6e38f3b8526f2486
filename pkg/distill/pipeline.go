package distill

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/MilesGuan/NewsDistill/pkg/source"
)

// LabeledItem is one headline as submitted to the model: a unique integer id
// plus the title. The id is the only key the model may reference back.
type LabeledItem struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// GroupedItem is a model-authored group of near-duplicate headlines.
type GroupedItem struct {
	Title string `json:"title"`
	IDs   []int  `json:"ids"`
}

// Category is one stage-2 category of grouped stories.
type Category struct {
	Category string        `json:"category"`
	Items    []GroupedItem `json:"items"`
}

type filterOutput struct {
	Items []GroupedItem `json:"items"`
}

type categoryOutput struct {
	Digest string     `json:"digest"`
	Items  []Category `json:"items"`
}

type labeledPayload struct {
	Items map[string][]LabeledItem `json:"items"`
}

// Result is the final distillation output with original items reattached.
// Errors lists non-fatal backend failures that happened before a later
// backend succeeded; backends never tried because of an earlier success
// contribute nothing.
type Result struct {
	Digest     string           `json:"digest"`
	Backend    string           `json:"backend"` // backend that produced stage 2
	Categories []MergedCategory `json:"categories"`
	Errors     []string         `json:"errors,omitempty"`
}

// Pipeline runs the two-stage reduction over an ordered backend list.
type Pipeline struct {
	backends     []Backend
	filterPrompt string
	catPrompt    string
	log          *slog.Logger
}

// PipelineOpts overrides the built-in prompts with files. A configured path
// that cannot be read is a configuration error.
type PipelineOpts struct {
	FilterPromptPath   string
	CategoryPromptPath string
	Logger             *slog.Logger
}

// NewPipeline creates a pipeline over the given backends, tried in order.
func NewPipeline(backends []Backend, opts PipelineOpts) (*Pipeline, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one model backend is required")
	}
	p := &Pipeline{
		backends:     backends,
		filterPrompt: defaultFilterPrompt,
		catPrompt:    defaultCategoryPrompt,
		log:          opts.Logger,
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if opts.FilterPromptPath != "" {
		data, err := os.ReadFile(opts.FilterPromptPath)
		if err != nil {
			return nil, fmt.Errorf("read filter prompt: %w", err)
		}
		p.filterPrompt = string(data)
	}
	if opts.CategoryPromptPath != "" {
		data, err := os.ReadFile(opts.CategoryPromptPath)
		if err != nil {
			return nil, fmt.Errorf("read category prompt: %w", err)
		}
		p.catPrompt = string(data)
	}
	return p, nil
}

// Label numbers every snapshot item with a unique id, stable for one run,
// and returns the model-facing JSON plus the id-to-item mapping used for
// reattachment. Source keys are walked in sorted order so the numbering is
// deterministic for a given snapshot.
func Label(snap *source.Snapshot) (string, map[int]source.Item, error) {
	keys := make([]string, 0, len(snap.Items))
	for k := range snap.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := labeledPayload{Items: make(map[string][]LabeledItem, len(keys))}
	idToItem := make(map[int]source.Item)
	next := 1
	for _, key := range keys {
		labeled := make([]LabeledItem, 0, len(snap.Items[key]))
		for _, it := range snap.Items[key] {
			labeled = append(labeled, LabeledItem{ID: next, Title: it.Title})
			idToItem[next] = it
			next++
		}
		payload.Items[key] = labeled
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal labeled items: %w", err)
	}
	return string(data), idToItem, nil
}

// Distill runs both stages over the snapshot and reattaches original items.
// On total backend failure at either stage it returns an *ExhaustedError
// carrying every backend's failure message; no partial result is produced.
func (p *Pipeline) Distill(ctx context.Context, snap *source.Snapshot) (*Result, error) {
	input, idToItem, err := Label(snap)
	if err != nil {
		return nil, err
	}

	p.log.Info("distill stage 1: filter/group", "items", len(idToItem))
	var filtered filterOutput
	_, stage1Errs, err := p.runStage(ctx, "filter", p.filterPrompt, input, &filtered)
	if err != nil {
		return nil, err
	}
	// Defensive: a group without ids can never resolve to anything.
	groups := filtered.Items[:0]
	for _, g := range filtered.Items {
		if len(g.IDs) > 0 {
			groups = append(groups, g)
		}
	}
	filtered.Items = groups

	stage2Input, err := json.Marshal(filtered)
	if err != nil {
		return nil, fmt.Errorf("marshal stage-1 output: %w", err)
	}

	p.log.Info("distill stage 2: categorize", "groups", len(filtered.Items))
	var categorized categoryOutput
	backend, stage2Errs, err := p.runStage(ctx, "categorize", p.catPrompt, string(stage2Input), &categorized)
	if err != nil {
		return nil, err
	}

	return &Result{
		Digest:     categorized.Digest,
		Backend:    backend,
		Categories: Merge(categorized.Items, idToItem),
		Errors:     append(stage1Errs, stage2Errs...),
	}, nil
}

// runStage tries each backend in priority order until one returns output
// that parses into out. A schema violation counts as a backend failure, not
// a fatal error. Returns the name of the backend that succeeded along with
// the failure messages of the backends tried before it.
func (p *Pipeline) runStage(ctx context.Context, stage, prompt, input string, out any) (string, []string, error) {
	var messages []string
	for _, b := range p.backends {
		raw, err := b.Run(ctx, prompt, input)
		if err != nil {
			messages = append(messages, fmt.Sprintf("%s: %v", b.Name(), err))
			p.log.Warn("backend failed", "stage", stage, "backend", b.Name(), "err", err)
			continue
		}
		if err := json.Unmarshal([]byte(stripFences(raw)), out); err != nil {
			messages = append(messages, fmt.Sprintf("%s: parse output: %v", b.Name(), err))
			p.log.Warn("backend output unparseable", "stage", stage, "backend", b.Name(), "err", err)
			continue
		}
		p.log.Info("stage complete", "stage", stage, "backend", b.Name())
		return b.Name(), messages, nil
	}
	return "", nil, &ExhaustedError{Stage: stage, Messages: messages}
}

// stripFences removes a wrapping markdown code block, which some models emit
// despite instructions.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	if idx := strings.Index(raw, "\n"); idx >= 0 {
		raw = raw[idx+1:]
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
