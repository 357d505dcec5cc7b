package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/cmcguide/internal/doctree"
	"github.com/dgallion1/cmcguide/internal/parser"
)

// LoadOptions controls how document files referenced by a manifest are read.
type LoadOptions struct {
	Parser      parser.Options
	Concurrency int // Max documents parsed at once.
	Log         *slog.Logger
}

type manifest struct {
	Documents []Record `yaml:"documents"`
	Links     Links    `yaml:"links"`
}

// Load reads a corpus manifest. YAML and JSON manifests list documents and
// an optional title to URL map; CSV manifests have a header row naming the
// columns. A missing manifest is an empty corpus, not an error.
func Load(ctx context.Context, path string, opts LoadOptions) ([]Record, Links, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("corpus manifest not found, using empty corpus", "path", path)
		return nil, Links{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read corpus manifest: %w", err)
	}

	var m manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		m.Documents, err = readCSV(strings.NewReader(string(data)))
	default:
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse corpus manifest %s: %w", path, err)
	}
	if m.Links == nil {
		m.Links = Links{}
	}

	records := normalize(m.Documents, m.Links)
	records, err = parseFiles(ctx, records, filepath.Dir(path), opts, log)
	if err != nil {
		return nil, nil, err
	}

	log.Info("corpus loaded", "path", path, "documents", len(records), "links", len(m.Links))
	return records, m.Links, nil
}

// normalize assigns IDs, fills URLs from links, and records every document
// URL back into links so citations can find it by title.
func normalize(docs []Record, links Links) []Record {
	seen := make(map[string]int)
	out := make([]Record, 0, len(docs))
	for i, r := range docs {
		r.Title = strings.TrimSpace(r.Title)
		if r.ID == "" {
			r.ID = fmt.Sprintf("doc%d", i+1)
		}
		if n := seen[r.ID]; n > 0 {
			r.ID = fmt.Sprintf("%s-%d", r.ID, n+1)
		}
		seen[r.ID]++
		if r.URL == "" {
			r.URL = links.URLFor(r.Title)
		} else if r.Title != "" {
			if _, ok := links[r.Title]; !ok {
				links[r.Title] = r.URL
			}
		}
		out = append(out, r)
	}
	return out
}

// parseFiles reads every record with a File in parallel. Documents that fail
// to parse are dropped with a warning; the rest of the corpus still loads.
func parseFiles(ctx context.Context, records []Record, baseDir string, opts LoadOptions, log *slog.Logger) ([]Record, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}

	failed := make([]bool, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range records {
		if records[i].File == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := &records[i]
			path := r.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			tree, err := parseFile(path, opts.Parser)
			if err != nil {
				log.Warn("skipping corpus document", "id", r.ID, "file", path, "error", err)
				failed[i] = true
				return nil
			}
			if r.Title == "" {
				r.Title = tree.Title
			}
			tree.Title = r.Title
			r.Tree = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parse corpus documents: %w", err)
	}

	out := records[:0]
	for i, r := range records {
		if !failed[i] {
			out = append(out, r)
		}
	}
	return out, nil
}

func parseFile(path string, opts parser.Options) (*doctree.DocTree, error) {
	p, err := parser.ForFile(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Parse(f, path)
}

// readCSV reads a manifest whose header row names the columns. Unknown
// columns are ignored; topics are separated by ';' or '|'.
func readCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for _, row := range rows[1:] {
		rec := Record{
			ID:        get(row, "id"),
			Title:     get(row, "title"),
			URL:       get(row, "url"),
			Publisher: get(row, "publisher"),
			Text:      get(row, "text"),
			File:      get(row, "file"),
		}
		if y, err := strconv.Atoi(get(row, "year")); err == nil {
			rec.Year = y
		}
		if w, err := strconv.ParseFloat(get(row, "weight"), 64); err == nil {
			rec.Weight = w
		}
		for _, t := range strings.FieldsFunc(get(row, "topics"), func(r rune) bool { return r == ';' || r == '|' }) {
			if t = strings.TrimSpace(t); t != "" {
				rec.Topics = append(rec.Topics, t)
			}
		}
		if rec.Title == "" && rec.Text == "" && rec.File == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
