// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/httpclient"
	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

const (
	defaultPageSize    = 100
	defaultConcurrency = 4
	defaultAPITimeout  = 30 * time.Second
)

// matrixToken in a config value defers resolution to the pipeline's
// matrix entry.
const matrixToken = "${collection_id}"

type ingestAPIConfig struct {
	// CatalogURL is the catalog root, e.g. "https://catalog.example.com".
	CatalogURL string `yaml:"catalog_url"`

	// CollectionID selects the collection to page through. The literal
	// token ${collection_id} resolves against the matrix entry.
	CollectionID string `yaml:"collection_id"`

	// PageSize is the item count requested per page. Default: 100.
	PageSize int `yaml:"page_size"`

	// Concurrency bounds parallel per-item detail requests when
	// resolve_items is set. Default: 4.
	Concurrency int `yaml:"concurrency"`

	// RateLimit caps outgoing requests per second. 0 = unlimited.
	RateLimit float64 `yaml:"rate_limit"`

	// Timeout is the per-request timeout, e.g. "30s".
	Timeout string `yaml:"timeout"`

	// ResolveItems re-fetches each feature through its self link,
	// for catalogs whose listing pages carry abbreviated records.
	ResolveItems bool `yaml:"resolve_items"`
}

// ingestAPI pages a JSON catalog endpoint and streams its items.
type ingestAPI struct {
	cfg        ingestAPIConfig
	collection string
	client     *http.Client
	limiter    *rate.Limiter
}

type apiLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type featurePage struct {
	Features []map[string]any `json:"features"`
	Links    []apiLink        `json:"links"`
}

func newIngestFromAPI(config map[string]any, run *pipeline.Context) (any, error) {
	var cfg ingestAPIConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	if cfg.CatalogURL == "" {
		return nil, &errors.ConfigError{Key: "catalog_url", Reason: "catalog_url is required"}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	collection := cfg.CollectionID
	if collection == "" || collection == matrixToken {
		collection = run.CollectionID()
	}
	if collection == "" {
		return nil, &errors.ConfigError{
			Key:    "collection_id",
			Reason: "collection_id is not set and the pipeline has no matrix collection",
		}
	}

	timeout := defaultAPITimeout
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, &errors.ConfigError{
				Key:    "timeout",
				Reason: fmt.Sprintf("invalid timeout %q", cfg.Timeout),
				Cause:  err,
			}
		}
		timeout = d
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = timeout
	client, err := httpclient.New(clientCfg)
	if err != nil {
		return nil, &errors.ConfigError{
			Key:    "catalog_url",
			Reason: "failed to build HTTP client",
			Cause:  err,
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &ingestAPI{
		cfg:        cfg,
		collection: collection,
		client:     client,
		limiter:    limiter,
	}, nil
}

func (f *ingestAPI) Fetch(ctx context.Context, run *pipeline.Context) (<-chan item.Item, <-chan error) {
	itemsCh := make(chan item.Item, pipeline.StreamBuffer)
	errsCh := make(chan error, 1)

	ctx = httpclient.WithRunID(ctx, run.RunID)

	go func() {
		defer close(itemsCh)
		defer close(errsCh)

		url := fmt.Sprintf("%s/collections/%s/items?limit=%d",
			strings.TrimRight(f.cfg.CatalogURL, "/"), f.collection, f.cfg.PageSize)

		for url != "" && ctx.Err() == nil {
			var page featurePage
			if err := f.getJSON(ctx, url, &page); err != nil {
				// Items not yet checkpointed are retried next run.
				errsCh <- &errors.DataError{
					Message: fmt.Sprintf("failed to fetch page %s", url),
					Cause:   err,
				}
				return
			}

			features := page.Features
			if f.cfg.ResolveItems {
				features = f.resolveFeatures(ctx, features, errsCh)
			}

			for _, feature := range features {
				if feature == nil {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case itemsCh <- item.Item(feature):
				}
			}

			url = nextLink(page.Links)
		}
	}()

	return itemsCh, errsCh
}

// resolveFeatures fetches each feature's self link, bounded by the
// configured concurrency. Order is preserved; a feature that fails to
// resolve is reported and left out.
func (f *ingestAPI) resolveFeatures(ctx context.Context, features []map[string]any, errsCh chan<- error) []map[string]any {
	resolved := make([]map[string]any, len(features))

	var g errgroup.Group
	g.SetLimit(f.cfg.Concurrency)
	for i, feature := range features {
		g.Go(func() error {
			id, _ := feature["id"].(string)
			self := selfLink(feature)
			if self == "" {
				resolved[i] = feature
				return nil
			}

			var full map[string]any
			if err := f.getJSON(ctx, self, &full); err != nil {
				errsCh <- &errors.DataError{
					ItemID:  id,
					Message: fmt.Sprintf("failed to resolve item %s", self),
					Cause:   err,
				}
				return nil
			}
			resolved[i] = full
			return nil
		})
	}
	_ = g.Wait()

	return resolved
}

func (f *ingestAPI) getJSON(ctx context.Context, url string, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func nextLink(links []apiLink) string {
	for _, l := range links {
		if l.Rel == "next" {
			return l.Href
		}
	}
	return ""
}

func selfLink(feature map[string]any) string {
	links, _ := feature["links"].([]any)
	for _, raw := range links {
		l, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if rel, _ := l["rel"].(string); rel == "self" {
			href, _ := l["href"].(string)
			return href
		}
	}
	return ""
}
