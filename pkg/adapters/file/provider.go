package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/aretw0/zonerules/pkg/rules"
	"github.com/aretw0/zonerules/pkg/schema"
)

// extensions are tried in order when a document is looked up.
var extensions = []string{".yaml", ".yml", ".json"}

// Provider implements ports.RulesProvider over a directory of rules documents.
// Each document lives at "<region>@<version>.yaml" (or .yml/.json) below
// BasePath, so "Europe/Paris@2019c.yaml" sits in the "Europe" subdirectory.
type Provider struct {
	BasePath string
}

// New creates a Provider rooted at basePath.
// If basePath is empty, it defaults to "zoneinfo".
func New(basePath string) *Provider {
	if basePath == "" {
		basePath = "zoneinfo"
	}
	return &Provider{BasePath: basePath}
}

func (p *Provider) regionPath(region string) (string, error) {
	rel := filepath.FromSlash(region)
	if region == "" || !filepath.IsLocal(rel) || strings.ContainsRune(region, '@') {
		return "", fmt.Errorf("%w: region %q", domain.ErrInvalidArgument, region)
	}
	return filepath.Join(p.BasePath, rel), nil
}

// Save writes doc atomically, as YAML unless ext is ".json".
// It writes to a temporary file first, syncs it, and then renames it over the
// destination, removing any copy of the same version in another format.
func (p *Provider) Save(ctx context.Context, doc schema.ZoneDocument, ext string) error {
	if ext == "" {
		ext = ".yaml"
	}
	base, err := p.regionPath(doc.Region)
	if err != nil {
		return err
	}
	if doc.Version == "" || strings.ContainsAny(doc.Version, "@/\\") {
		return fmt.Errorf("%w: version %q", domain.ErrInvalidArgument, doc.Version)
	}
	dir := filepath.Dir(base)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure zone directory: %w", err)
	}

	name := filepath.Base(base) + "@" + doc.Version
	data, err := schema.Marshal(ext, doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-"+name+"-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := filepath.Join(dir, name+ext)
	for _, other := range extensions {
		if other == ext {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name+other)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove stale %s%s: %w", name, other, err)
		}
	}
	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing zone file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", destPath, err)
	}
	return nil
}

// Load reads the document of region at version.
func (p *Provider) Load(ctx context.Context, region, version string) (schema.ZoneDocument, error) {
	base, err := p.regionPath(region)
	if err != nil {
		return schema.ZoneDocument{}, err
	}
	for _, ext := range extensions {
		path := base + "@" + version + ext
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return schema.ZoneDocument{}, fmt.Errorf("failed to read zone file: %w", err)
		}
		doc, err := schema.Unmarshal(path, data)
		if err != nil {
			return schema.ZoneDocument{}, err
		}
		if doc.Region != region || doc.Version != version {
			return schema.ZoneDocument{}, fmt.Errorf("%w: %s declares %s", domain.ErrInvalidArgument, path, schema.DocumentID(doc.Region, doc.Version))
		}
		return doc, nil
	}
	return schema.ZoneDocument{}, fmt.Errorf("%w: %s", domain.ErrUnknownZone, schema.DocumentID(region, version))
}

// Rules loads and builds the engine of region at version.
func (p *Provider) Rules(ctx context.Context, region, version string) (*rules.Rules, error) {
	doc, err := p.Load(ctx, region, version)
	if err != nil {
		return nil, err
	}
	return doc.Build()
}

// Delete removes every stored format of region at version.
func (p *Provider) Delete(ctx context.Context, region, version string) error {
	base, err := p.regionPath(region)
	if err != nil {
		return err
	}
	for _, ext := range extensions {
		if err := os.Remove(base + "@" + version + ext); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete zone file: %w", err)
		}
	}
	return nil
}

// Versions lists the stored versions of region, newest first.
func (p *Provider) Versions(ctx context.Context, region string) ([]string, error) {
	base, err := p.regionPath(region)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Dir(base))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to list zone files: %w", err)
	}

	prefix := filepath.Base(base) + "@"
	var versions []string
	for _, entry := range entries {
		r, v, ok := documentName(entry)
		if ok && r+"@" == prefix {
			versions = append(versions, v)
		}
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: region %q", domain.ErrUnknownZone, region)
	}
	return domain.SortVersions(versions), nil
}

// LatestVersion returns the newest stored version of region.
func (p *Provider) LatestVersion(ctx context.Context, region string) (string, error) {
	versions, err := p.Versions(ctx, region)
	if err != nil {
		return "", err
	}
	return versions[0], nil
}

// Regions lists every region with at least one stored version.
func (p *Provider) Regions(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	err := filepath.WalkDir(p.BasePath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name, _, ok := documentName(entry)
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(p.BasePath, filepath.Join(filepath.Dir(path), name))
		if err != nil {
			return err
		}
		seen[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to list zone files: %w", err)
	}

	regions := make([]string, 0, len(seen))
	for r := range seen {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions, nil
}

// documentName splits a "<name>@<version>.<ext>" entry. Directories and
// temporary files are skipped.
func documentName(entry fs.DirEntry) (name, version string, ok bool) {
	if entry.IsDir() || strings.HasPrefix(entry.Name(), "tmp-") {
		return "", "", false
	}
	ext := filepath.Ext(entry.Name())
	known := false
	for _, e := range extensions {
		known = known || strings.EqualFold(ext, e)
	}
	if !known {
		return "", "", false
	}
	return schema.SplitDocumentID(strings.TrimSuffix(entry.Name(), ext))
}

var _ ports.RulesProvider = (*Provider)(nil)
