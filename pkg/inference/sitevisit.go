package inference

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/blueberry-browser/blueberry-go/pkg/assembler"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

const (
	// DefaultSiteVisitWindow is how many recent entries are scanned.
	DefaultSiteVisitWindow = 50

	// DefaultMinVisits is the number of captured pages a domain needs.
	DefaultMinVisits = 3

	// DefaultMaxSites caps the sites opened by one suggestion.
	DefaultMaxSites = 3
)

// EntrySource lists the newest memory entries. memory.Service satisfies it.
type EntrySource interface {
	Recent(ctx context.Context, limit int) ([]*model.MemoryEntry, error)
}

// SiteVisitSuggester proposes reopening the sites the user visits most,
// counted over recently captured pages. It needs no model.
type SiteVisitSuggester struct {
	entries   EntrySource
	window    int
	minVisits int
	maxSites  int
}

// SiteVisitOption configures a SiteVisitSuggester.
type SiteVisitOption func(*SiteVisitSuggester)

// WithMinVisits sets the visit count a domain needs to be suggested.
func WithMinVisits(n int) SiteVisitOption {
	return func(s *SiteVisitSuggester) {
		if n > 0 {
			s.minVisits = n
		}
	}
}

// WithMaxSites sets how many domains one suggestion opens.
func WithMaxSites(n int) SiteVisitOption {
	return func(s *SiteVisitSuggester) {
		if n > 0 {
			s.maxSites = n
		}
	}
}

// NewSiteVisitSuggester creates a heuristic suggester over entries.
func NewSiteVisitSuggester(entries EntrySource, opts ...SiteVisitOption) *SiteVisitSuggester {
	s := &SiteVisitSuggester{
		entries:   entries,
		window:    DefaultSiteVisitWindow,
		minVisits: DefaultMinVisits,
		maxSites:  DefaultMaxSites,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type siteCount struct {
	domain string
	count  int
}

// SuggestWorkflow implements Suggester. The workflow navigates to each
// frequent domain, most visited first; the trigger names the domain set so
// the same set is only suggested once.
func (s *SiteVisitSuggester) SuggestWorkflow(ctx context.Context, _ *model.ContextSnapshot) (*model.Workflow, error) {
	entries, err := s.entries.Recent(ctx, s.window)
	if err != nil {
		return nil, model.NewEngineError("SuggestWorkflow", err)
	}

	sites := s.frequentSites(entries)
	if len(sites) == 0 {
		return nil, nil
	}

	domains := make([]string, 0, len(sites))
	actions := make([]model.Action, 0, len(sites))
	for _, site := range sites {
		domains = append(domains, site.domain)
		actions = append(actions, model.Action{
			Type:        model.ActionNavigate,
			Target:      "https://" + site.domain,
			Description: fmt.Sprintf("You've visited %s %d times recently", site.domain, site.count),
		})
	}

	title := "Visit " + domains[0]
	if len(domains) > 1 {
		title = "Open your frequent sites"
	}

	return &model.Workflow{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    "Reopens " + strings.Join(domains, ", "),
		TriggerContext: "site-visits:" + strings.Join(domains, ","),
		Actions:        actions,
	}, nil
}

// frequentSites counts page entries per domain and returns those at or
// above the threshold, most visited first. Ties sort by domain.
func (s *SiteVisitSuggester) frequentSites(entries []*model.MemoryEntry) []siteCount {
	counts := make(map[string]int)
	for _, entry := range entries {
		if entry == nil || entry.Kind != model.KindPage {
			continue
		}
		rawURL, ok := entry.Metadata["url"].(string)
		if !ok {
			continue
		}
		if domain := assembler.ExtractDomain(rawURL); domain != "" {
			counts[domain]++
		}
	}

	var sites []siteCount
	for domain, n := range counts {
		if n >= s.minVisits {
			sites = append(sites, siteCount{domain: domain, count: n})
		}
	}
	sort.Slice(sites, func(i, j int) bool {
		if sites[i].count != sites[j].count {
			return sites[i].count > sites[j].count
		}
		return sites[i].domain < sites[j].domain
	})

	if len(sites) > s.maxSites {
		sites = sites[:s.maxSites]
	}
	return sites
}
