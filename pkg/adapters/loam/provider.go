package loam

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/aretw0/zonerules/pkg/rules"
	"github.com/aretw0/zonerules/pkg/schema"
)

// Provider adapts a Loam repository of rules documents to ports.RulesProvider.
//
// Each document carries a schema.ZoneDocument as its metadata (frontmatter
// for Markdown, the whole file for YAML and JSON) and free-form release
// notes as its content. Documents are addressed as "<region>@<version>".
type Provider struct {
	Repo   *loam.TypedRepository[schema.ZoneDocument]
	logger *slog.Logger
}

// New creates a new Loam provider.
func New(repo *loam.TypedRepository[schema.ZoneDocument], logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{Repo: repo, logger: logger}
}

// Open initializes a read-only Loam repository at path and wraps it.
func Open(path string, logger *slog.Logger) (*Provider, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numbers as json.Number in every format.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[schema.ZoneDocument](repo), logger), nil
}

// entry is one listed document.
type entry struct {
	path string
	doc  schema.ZoneDocument
}

// index lists every document by its "<region>@<version>" identifier.
// Metadata wins over the file name when both are present.
func (p *Provider) index(ctx context.Context) (map[string]entry, error) {
	docs, err := p.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	out := make(map[string]entry, len(docs))
	for _, d := range docs {
		zd := d.Data
		if zd.Region == "" || zd.Version == "" {
			region, version, ok := schema.SplitDocumentID(trimExtension(d.ID))
			if !ok {
				p.logger.Debug("skipping document without zone identity", "path", d.ID)
				continue
			}
			if zd.Region == "" {
				zd.Region = region
			}
			if zd.Version == "" {
				zd.Version = version
			}
		}

		id := schema.DocumentID(zd.Region, zd.Version)
		if existing, ok := out[id]; ok {
			return nil, fmt.Errorf("collision detected: zone '%s' is defined in both '%s' and '%s'", id, existing.path, d.ID)
		}
		out[id] = entry{path: d.ID, doc: zd}
	}
	return out, nil
}

// Document returns the rules document of region at version and its notes.
func (p *Provider) Document(ctx context.Context, region, version string) (schema.ZoneDocument, string, error) {
	id := schema.DocumentID(region, version)
	d, err := p.Repo.Get(ctx, id)
	if err != nil {
		// The file name may differ from the declared identity.
		idx, lerr := p.index(ctx)
		if lerr != nil {
			return schema.ZoneDocument{}, "", lerr
		}
		e, ok := idx[id]
		if !ok {
			return schema.ZoneDocument{}, "", fmt.Errorf("%w: %s", domain.ErrUnknownZone, id)
		}
		if d, err = p.Repo.Get(ctx, trimExtension(e.path)); err != nil {
			return schema.ZoneDocument{}, "", fmt.Errorf("loam get failed for %s: %w", id, err)
		}
	}

	zd := d.Data
	if zd.Region == "" {
		zd.Region = region
	}
	if zd.Version == "" {
		zd.Version = version
	}
	if zd.Region != region || zd.Version != version {
		return schema.ZoneDocument{}, "", fmt.Errorf("%w: %s declares %s", domain.ErrInvalidArgument, d.ID, schema.DocumentID(zd.Region, zd.Version))
	}
	return zd, strings.TrimSpace(d.Content), nil
}

// Rules builds the engine of region at version.
func (p *Provider) Rules(ctx context.Context, region, version string) (*rules.Rules, error) {
	zd, _, err := p.Document(ctx, region, version)
	if err != nil {
		return nil, err
	}
	return zd.Build()
}

// Save stores doc with notes as its body.
func (p *Provider) Save(ctx context.Context, doc schema.ZoneDocument, notes string) error {
	id := schema.DocumentID(doc.Region, doc.Version)
	err := p.Repo.Save(ctx, &loam.DocumentModel[schema.ZoneDocument]{
		ID:      id,
		Content: notes,
		Data:    doc,
	})
	if err != nil {
		return fmt.Errorf("loam save failed for %s: %w", id, err)
	}
	return nil
}

// Versions lists the versions of region, newest first.
func (p *Provider) Versions(ctx context.Context, region string) ([]string, error) {
	idx, err := p.index(ctx)
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, e := range idx {
		if e.doc.Region == region {
			versions = append(versions, e.doc.Version)
		}
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: region %q", domain.ErrUnknownZone, region)
	}
	return domain.SortVersions(versions), nil
}

// LatestVersion returns the newest version of region.
func (p *Provider) LatestVersion(ctx context.Context, region string) (string, error) {
	versions, err := p.Versions(ctx, region)
	if err != nil {
		return "", err
	}
	return versions[0], nil
}

// Regions lists the regions present in the repository.
func (p *Provider) Regions(ctx context.Context) ([]string, error) {
	idx, err := p.index(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(idx))
	for _, e := range idx {
		seen[e.doc.Region] = struct{}{}
	}
	regions := make([]string, 0, len(seen))
	for r := range seen {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" && !strings.Contains(ext, "@") {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable. It signals once per changed document.
func (p *Provider) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := p.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				p.logger.Debug("zone document changed", "path", evt.ID)
				// A pending signal already covers this change.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}

var (
	_ ports.RulesProvider = (*Provider)(nil)
	_ ports.Watchable     = (*Provider)(nil)
)
