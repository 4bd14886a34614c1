package resolver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ariel-frischer/shipset/internal/config"
	"github.com/rs/zerolog/log"
)

// ExpandPreCheckURL substitutes the package placeholders in a pre-check URL.
func ExpandPreCheckURL(raw string, pkg *ResolvedPackage) string {
	return strings.NewReplacer(
		"{{ package.name }}", pkg.Name,
		"{{package.name}}", pkg.Name,
		"{{ package.version }}", pkg.Version,
		"{{package.version}}", pkg.Version,
	).Replace(raw)
}

// PreCheck reports whether the registry already serves pkg's version.
// Only HTTP 200 counts as published.
func (r *Runner) PreCheck(ctx context.Context, pkg *ResolvedPackage, cfg config.PreCheckConfig) (bool, error) {
	url := ExpandPreCheckURL(cfg.URL, pkg)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("building pre-check request: %w", err)
	}
	for k, v := range cfg.ExtraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("pre-check %s: %w", url, err)
	}
	defer resp.Body.Close()

	log.Debug().Str("package", pkg.Name).Str("url", url).Int("status", resp.StatusCode).Msg("pre-check")
	return resp.StatusCode == http.StatusOK, nil
}
