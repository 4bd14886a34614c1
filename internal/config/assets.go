package config

import (
	"fmt"
	"path/filepath"
)

// Asset is a release artifact resolved against the repository root.
type Asset struct {
	Path string
	Name string
}

// ResolveAssets returns the package's assets with absolute paths. A bare
// string entry uses its file name as the asset name.
func (p PackageConfig) ResolveAssets(repoRoot string) ([]Asset, error) {
	assets, err := p.assetConfigs()
	if err != nil {
		return nil, err
	}
	for i := range assets {
		if !filepath.IsAbs(assets[i].Path) {
			assets[i].Path = filepath.Join(repoRoot, assets[i].Path)
		}
	}
	return assets, nil
}

func (p PackageConfig) assetConfigs() ([]Asset, error) {
	assets := make([]Asset, 0, len(p.Assets))
	for i, raw := range p.Assets {
		switch v := raw.(type) {
		case string:
			if v == "" {
				return nil, fmt.Errorf("assets[%d]: path must not be empty", i)
			}
			assets = append(assets, Asset{Path: v, Name: filepath.Base(v)})
		case map[string]any:
			path, _ := v["path"].(string)
			if path == "" {
				return nil, fmt.Errorf("assets[%d]: path is required", i)
			}
			name, _ := v["name"].(string)
			if name == "" {
				name = filepath.Base(path)
			}
			assets = append(assets, Asset{Path: path, Name: name})
		default:
			return nil, fmt.Errorf("assets[%d]: expected a path or a {path, name} table, got %T", i, raw)
		}
	}
	return assets, nil
}
