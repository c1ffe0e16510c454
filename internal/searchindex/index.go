package searchindex

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	excerptLength = 240
	maxLineLength = 16 * 1024 * 1024
)

type Document struct {
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Headings []string `json:"headings"`
	Excerpt  string   `json:"excerpt"`
}

type Index struct {
	Documents []Document `json:"documents"`
}

// Build walks root for Markdown files. Paths in the index are relative to root.
func Build(root string) (*Index, error) {
	index := &Index{Documents: []Document{}}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".markdown" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		doc, err := parseMarkdown(filepath.ToSlash(rel), data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", rel, err)
		}
		index.Documents = append(index.Documents, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", root, err)
	}
	sort.Slice(index.Documents, func(i, j int) bool {
		return index.Documents[i].Path < index.Documents[j].Path
	})
	return index, nil
}

func parseMarkdown(path string, data []byte) (Document, error) {
	doc := Document{Path: path, Headings: []string{}}
	var excerpt []string
	inFence := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.HasPrefix(line, "#") {
			heading := strings.TrimSpace(strings.TrimLeft(line, "#"))
			if heading == "" {
				continue
			}
			if doc.Title == "" && strings.HasPrefix(line, "# ") {
				doc.Title = heading
				continue
			}
			doc.Headings = append(doc.Headings, heading)
			continue
		}
		if line != "" && len(strings.Join(excerpt, " ")) < excerptLength {
			excerpt = append(excerpt, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return doc, err
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	doc.Excerpt = strings.Join(excerpt, " ")
	if len(doc.Excerpt) > excerptLength {
		doc.Excerpt = strings.ToValidUTF8(doc.Excerpt[:excerptLength], "") + "…"
	}
	return doc, nil
}

func (i *Index) Write(path string) error {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to decode search index: %w", err)
	}
	return &index, nil
}

// Search returns the documents containing every term of query, ignoring case. Documents
// whose title matches a term come first.
func (i *Index) Search(query string) []Document {
	terms := strings.Fields(strings.ToLower(query))
	results := []Document{}
	if len(terms) == 0 {
		return results
	}

	type scored struct {
		doc   Document
		title int
	}
	var matches []scored
	for _, doc := range i.Documents {
		title := strings.ToLower(doc.Title)
		haystack := title + "\n" + strings.ToLower(strings.Join(doc.Headings, "\n")) + "\n" + strings.ToLower(doc.Excerpt)
		all := true
		titleHits := 0
		for _, term := range terms {
			if !strings.Contains(haystack, term) {
				all = false
				break
			}
			if strings.Contains(title, term) {
				titleHits++
			}
		}
		if all {
			matches = append(matches, scored{doc: doc, title: titleHits})
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].title > matches[b].title
	})
	for _, m := range matches {
		results = append(results, m.doc)
	}
	return results
}
