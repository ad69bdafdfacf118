package validate

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// keywords whose values are instance data, not subschemas.
var dataKeywords = map[string]bool{
	"enum":     true,
	"const":    true,
	"default":  true,
	"examples": true,
}

// keywords whose string value references another document.
var refKeywords = []string{"$ref", "$dynamicRef", "$schema"}

type refWalker struct {
	legacyID bool           // draft-04 "id"
	schema   string         // $schema of the document
	ids      map[string]any // resources identified in the document
	refs     []string
	seen     map[string]bool
}

// collectRefs returns the remote documents referenced from doc, which was
// retrieved from docURL, in discovery order and without duplicates, along
// with the resources identified in doc keyed by their absolute url. Targets
// served by the engine itself (json-schema.org meta-schemas) and resources
// identified in doc are not reported as references.
func collectRefs(doc any, docURL string) (refs []string, ids map[string]any) {
	base, err := url.Parse(docURL)
	if err != nil {
		return nil, nil
	}
	w := &refWalker{
		ids:  map[string]any{normalizeURL(docURL): doc},
		seen: map[string]bool{},
	}
	if m, ok := doc.(map[string]any); ok {
		w.schema, _ = m["$schema"].(string)
		w.legacyID = strings.Contains(w.schema, "draft-04")
	}
	w.walk(doc, base)

	for _, ref := range w.refs {
		if _, ok := w.ids[ref]; !ok {
			refs = append(refs, ref)
		}
	}
	return refs, w.ids
}

func (w *refWalker) walk(v any, base *url.URL) {
	switch v := v.(type) {
	case map[string]any:
		if id, ok := w.id(v); ok {
			if u, err := base.Parse(id); err == nil {
				base = u
				if key := normalizeURL(u.String()); w.ids[key] == nil {
					w.ids[key] = w.resource(v)
				}
			}
		}
		for _, kw := range refKeywords {
			if ref, ok := v[kw].(string); ok {
				w.addRef(base, ref)
			}
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			if !dataKeywords[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			w.walk(v[k], base)
		}
	case []any:
		for _, item := range v {
			w.walk(item, base)
		}
	}
}

// resource returns m as a standalone document, carrying the $schema of
// the enclosing document so that it is read with the same draft.
func (w *refWalker) resource(m map[string]any) map[string]any {
	if _, ok := m["$schema"]; ok || w.schema == "" {
		return m
	}
	r := make(map[string]any, len(m)+1)
	for k, v := range m {
		r[k] = v
	}
	r["$schema"] = w.schema
	return r
}

func (w *refWalker) id(m map[string]any) (string, bool) {
	if id, ok := m["$id"].(string); ok {
		return id, true
	}
	if w.legacyID {
		if id, ok := m["id"].(string); ok {
			return id, true
		}
	}
	return "", false
}

func (w *refWalker) addRef(base *url.URL, ref string) {
	u, err := base.Parse(ref)
	if err != nil {
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return
	}
	if isMetaSchemaHost(u.Host) {
		return
	}
	key := normalizeURL(u.String())
	if !w.seen[key] {
		w.seen[key] = true
		w.refs = append(w.refs, key)
	}
}

func isMetaSchemaHost(host string) bool {
	return strings.EqualFold(host, "json-schema.org")
}

// prefetch resolves the remote documents reachable from root, one
// reference depth at a time. The documents of one depth are fetched
// concurrently. It returns the fetched documents keyed by url, and the
// http resources identified inside root or the fetched documents under a
// url of their own.
func (p *Pipeline) prefetch(ctx context.Context, cache *Cache, rootURL string, root any) (docs, embedded map[string]any, err error) {
	docs = map[string]any{}
	embedded = map[string]any{}
	visited := map[string]bool{}
	enqueue := func(doc any, docURL string, level []string) []string {
		refs, ids := collectRefs(doc, docURL)
		self := normalizeURL(docURL)
		for id, node := range ids {
			visited[id] = true
			if _, ok := embedded[id]; !ok && id != self && isHTTP(id) {
				embedded[id] = node
			}
		}
		for _, ref := range refs {
			if !visited[ref] {
				visited[ref] = true
				level = append(level, ref)
			}
		}
		return level
	}

	level := enqueue(root, rootURL, nil)
	for depth := 1; len(level) > 0; depth++ {
		p.logger.Debug("resolving references", "depth", depth, "count", len(level))
		results := make([]any, len(level))
		var g errgroup.Group
		g.SetLimit(p.opts.MaxConcurrentFetches)
		for i, u := range level {
			g.Go(func() error {
				doc, err := cache.Get(ctx, u)
				results[i] = doc
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}

		var next []string
		for i, u := range level {
			docs[u] = results[i]
			next = enqueue(results[i], u, next)
		}
		level = next
	}
	for u := range docs {
		delete(embedded, u)
	}
	return docs, embedded, nil
}

func isHTTP(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
