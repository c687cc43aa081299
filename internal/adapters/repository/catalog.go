package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/okian/riskengine/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// CatalogDocument is the on-disk layout of a risk catalog.
type CatalogDocument struct {
	Risks    []CatalogRisk    `yaml:"risks"`
	Controls []CatalogControl `yaml:"controls"`
}

// CatalogRisk is one risk with optional extra search terms.
type CatalogRisk struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// CatalogControl is one control and the risks it mitigates.
type CatalogControl struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Risks       []string `yaml:"risks"`
}

// catalogSnapshot is an immutable, indexed view of a document.
type catalogSnapshot struct {
	risks    []indexedRisk
	byID     map[string]int
	controls map[string][]model.Control
}

type indexedRisk struct {
	risk     model.CandidateRisk
	haystack string
}

// Catalog serves risks from an in-memory snapshot loaded from YAML.
// Reads are lock-free; Reload swaps the snapshot atomically.
type Catalog struct {
	path        string
	maxKeywords int
	snap        atomic.Pointer[catalogSnapshot]
}

// NewCatalog indexes doc.
func NewCatalog(doc CatalogDocument) (*Catalog, error) {
	snap, err := buildSnapshot(doc)
	if err != nil {
		return nil, err
	}
	c := &Catalog{maxKeywords: DefaultMaxSearchKeywords}
	c.snap.Store(snap)
	return c, nil
}

// LoadCatalog reads and indexes the YAML catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	doc, err := readCatalog(path)
	if err != nil {
		return nil, err
	}
	c, err := NewCatalog(doc)
	if err != nil {
		return nil, err
	}
	c.path = path
	return c, nil
}

// ParseCatalog decodes a YAML catalog from r.
func ParseCatalog(r io.Reader) (CatalogDocument, error) {
	var doc CatalogDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return CatalogDocument{}, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return doc, nil
}

func readCatalog(path string) (CatalogDocument, error) {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return CatalogDocument{}, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseCatalog(f)
}

// Reload re-reads the file the catalog was loaded from. On error the
// previous snapshot stays in place.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return fmt.Errorf("%w: catalog was not loaded from a file", ErrInvalidCatalog)
	}
	doc, err := readCatalog(c.path)
	if err != nil {
		return err
	}
	snap, err := buildSnapshot(doc)
	if err != nil {
		return err
	}
	c.snap.Store(snap)
	return nil
}

func buildSnapshot(doc CatalogDocument) (*catalogSnapshot, error) {
	s := &catalogSnapshot{
		risks:    make([]indexedRisk, 0, len(doc.Risks)),
		byID:     make(map[string]int, len(doc.Risks)),
		controls: make(map[string][]model.Control),
	}
	for _, r := range doc.Risks {
		if err := ValidateRiskID(r.ID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
		}
		if _, dup := s.byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate risk %q", ErrInvalidCatalog, r.ID)
		}
		s.byID[r.ID] = len(s.risks)
		s.risks = append(s.risks, indexedRisk{
			risk:     model.CandidateRisk{RiskID: r.ID, RiskTitle: r.Title, RiskDescription: r.Description},
			haystack: strings.ToLower(strings.Join(append([]string{r.Title, r.Description}, r.Keywords...), "\n")),
		})
	}
	for _, ctl := range doc.Controls {
		for _, rid := range ctl.Risks {
			if _, ok := s.byID[rid]; !ok {
				return nil, fmt.Errorf("%w: control %q references unknown risk %q", ErrInvalidCatalog, ctl.ID, rid)
			}
			s.controls[rid] = append(s.controls[rid], model.Control{
				ControlID:          ctl.ID,
				ControlTitle:       ctl.Title,
				ControlDescription: ctl.Description,
			})
		}
	}
	return s, nil
}

// Search returns risks matching any keyword, in catalog order.
func (c *Catalog) Search(ctx context.Context, keywords []string) ([]model.CandidateRisk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if s := strings.ToLower(SanitizeKeyword(k)); s != "" {
			terms = append(terms, s)
		}
		if len(terms) == c.maxKeywords {
			break
		}
	}

	snap := c.snap.Load()
	out := make([]model.CandidateRisk, 0)
	for _, r := range snap.risks {
		for _, t := range terms {
			if strings.Contains(r.haystack, t) {
				out = append(out, r.risk)
				break
			}
		}
	}
	return out, nil
}

// ControlsFor returns controls for every id; unknown ids map to an empty list.
func (c *Catalog) ControlsFor(ctx context.Context, riskIDs []string) (map[string][]model.Control, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := c.snap.Load()
	out := make(map[string][]model.Control, len(riskIDs))
	for _, id := range riskIDs {
		if err := ValidateRiskID(id); err != nil {
			return nil, err
		}
		controls := make([]model.Control, len(snap.controls[id]))
		copy(controls, snap.controls[id])
		out[id] = controls
	}
	return out, nil
}

// Risk returns a single risk. An unknown id returns nil without error.
func (c *Catalog) Risk(_ context.Context, id string) (*model.CandidateRisk, error) {
	if err := ValidateRiskID(id); err != nil {
		return nil, err
	}
	snap := c.snap.Load()
	i, ok := snap.byID[id]
	if !ok {
		return nil, nil
	}
	r := snap.risks[i].risk
	return &r, nil
}

// Len returns the number of risks in the current snapshot.
func (c *Catalog) Len() int { return len(c.snap.Load().risks) }

// Health reports whether the catalog holds any risks.
func (c *Catalog) Health(context.Context) bool { return c.Len() > 0 }
