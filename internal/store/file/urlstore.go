// Package file implements the durable newline-delimited text stores backing
// domain discovery and the scrape log.
package file

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// DefaultEngines is the built-in search-engine template list used when the
// engines file is missing. Each template is prefixed to the URL-encoded
// query phrase.
var DefaultEngines = []string{
	"https://www.bing.com/search?q=",
	"https://duckduckgo.com/html/?q=",
	"https://search.brave.com/search?q=",
}

// URLStore persists candidate domains and the scrape log as UTF-8 text
// files, one entry per line.
type URLStore struct {
	domainsPath string
	scrapedPath string
	logger      *zap.Logger
}

// NewURLStore builds a store over the two backing files. The files are
// created on first write; a missing file reads as an empty set.
func NewURLStore(domainsPath, scrapedPath string, logger *zap.Logger) *URLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &URLStore{
		domainsPath: domainsPath,
		scrapedPath: scrapedPath,
		logger:      logger,
	}
}

// LoadDomains reads the stored candidate-domain set.
func (s *URLStore) LoadDomains() ([]pipeline.CandidateDomain, error) {
	lines, err := readLines(s.domainsPath)
	if err != nil {
		return nil, fmt.Errorf("load domains: %w", err)
	}
	domains := make([]pipeline.CandidateDomain, 0, len(lines))
	for _, line := range lines {
		domains = append(domains, pipeline.CandidateDomain{SchemeAndHost: line})
	}
	return domains, nil
}

// OverwriteDomains replaces the domain file with the full accumulated set,
// sorted for stable output. Last writer wins per discovery pass.
func (s *URLStore) OverwriteDomains(domains []pipeline.CandidateDomain) error {
	lines := make([]string, 0, len(domains))
	for _, d := range domains {
		lines = append(lines, d.SchemeAndHost)
	}
	sort.Strings(lines)
	if err := writeLines(s.domainsPath, lines); err != nil {
		return fmt.Errorf("overwrite domains: %w", err)
	}
	s.logger.Info("domain store overwritten",
		zap.String("path", s.domainsPath),
		zap.Int("domains", len(lines)),
	)
	return nil
}

// LoadScraped reads the append-only scrape log into a map keyed by domain.
// Later entries for the same domain win.
func (s *URLStore) LoadScraped() (map[string]pipeline.ScrapeRecord, error) {
	lines, err := readLines(s.scrapedPath)
	if err != nil {
		return nil, fmt.Errorf("load scrape log: %w", err)
	}
	records := make(map[string]pipeline.ScrapeRecord, len(lines))
	for _, line := range lines {
		rec := parseScrapeLine(line)
		records[rec.Domain] = rec
	}
	return records, nil
}

// AppendScraped appends one record to the scrape log.
func (s *URLStore) AppendScraped(rec pipeline.ScrapeRecord) error {
	f, err := os.OpenFile(s.scrapedPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open scrape log: %w", err)
	}
	defer f.Close()

	line := rec.Domain
	if !rec.LastScraped.IsZero() {
		line = rec.Domain + "\t" + rec.LastScraped.UTC().Format(time.RFC3339)
	}
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("append scrape log: %w", err)
	}
	return nil
}

// LoadEngines reads the ordered search-engine template list from path. A
// missing file falls back to DefaultEngines with a warning, not an error.
func LoadEngines(path string, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}
	lines, err := readLines(path)
	if err != nil || len(lines) == 0 {
		logger.Warn("search engines file unavailable, using built-in defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return append([]string(nil), DefaultEngines...)
	}
	return lines
}

func parseScrapeLine(line string) pipeline.ScrapeRecord {
	parts := strings.SplitN(line, "\t", 2)
	rec := pipeline.ScrapeRecord{Domain: parts[0]}
	if len(parts) == 2 {
		if ts, err := time.Parse(time.RFC3339, parts[1]); err == nil {
			rec.LastScraped = ts
		}
	}
	return rec
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func writeLines(path string, lines []string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
