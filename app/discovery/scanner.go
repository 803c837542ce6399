package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/cdn-comb/app/catalog"
	"github.com/lysyi3m/cdn-comb/app/database"
	"github.com/lysyi3m/cdn-comb/app/fetch"
)

// Scanner crawls configured canary pages and records asset locators that
// are not yet reconciled against the catalog. Each new candidate is fetched
// once so detection can compare content hashes without another round trip.
type Scanner struct {
	httpClient *http.Client
	fetcher    fetch.Fetcher
	assets     database.AssetRepository
	candidates database.CandidateRepository
	userAgent  string
}

func NewScanner(httpClient *http.Client, fetcher fetch.Fetcher,
	assets database.AssetRepository, candidates database.CandidateRepository,
	userAgent string) *Scanner {
	return &Scanner{
		httpClient: httpClient,
		fetcher:    fetcher,
		assets:     assets,
		candidates: candidates,
		userAgent:  userAgent,
	}
}

// Run scans the given pages and persists newly observed candidates whose
// host is one of the tracked CDN domains. Returns the number of new
// candidates stored.
func (s *Scanner) Run(ctx context.Context, pages []string, domains []string) (int, error) {
	trackedLocators, err := s.trackedLocators()
	if err != nil {
		return 0, err
	}

	domainSet := make(map[string]bool, len(domains))
	for _, domain := range domains {
		domainSet[domain] = true
	}

	stored := 0
	for _, page := range pages {
		select {
		case <-ctx.Done():
			return stored, ctx.Err()
		default:
		}

		locators, err := s.scanPage(ctx, page, domainSet)
		if err != nil {
			slog.Warn("Failed to scan canary page", "page", page, "error", err)
			continue
		}

		for _, locator := range locators {
			if trackedLocators[locator] {
				continue
			}

			known, err := s.candidates.CandidateExists(locator)
			if err != nil {
				return stored, err
			}
			if known {
				continue
			}

			candidate, err := s.observe(ctx, locator, page)
			if err != nil {
				slog.Warn("Failed to observe candidate", "locator", locator, "error", err)
				continue
			}

			inserted, err := s.candidates.SaveCandidate(*candidate)
			if err != nil {
				return stored, err
			}
			if inserted {
				stored++
				slog.Info("New candidate discovered", "base_name", candidate.BaseName,
					"locator", locator, "source_page", page)
			}
		}
	}

	return stored, nil
}

func (s *Scanner) scanPage(ctx context.Context, page string, domains map[string]bool) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", page, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	base, err := url.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}

	seen := make(map[string]bool)
	var locators []string

	collect := func(raw string) {
		ref, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		resolved.Fragment = ""

		if !domains[resolved.Host] {
			return
		}
		if !isAssetPath(resolved.Path) {
			return
		}

		locator := resolved.String()
		if !seen[locator] {
			seen[locator] = true
			locators = append(locators, locator)
		}
	}

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			collect(src)
		}
	})
	doc.Find("link[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			collect(href)
		}
	})

	return locators, nil
}

// observe fetches a candidate once so its hash and size are available to
// the update detector.
func (s *Scanner) observe(ctx context.Context, locator, page string) (*database.DiscoveredCandidate, error) {
	identity := catalog.Identify(locator)
	if identity.BaseName == "" {
		return nil, fmt.Errorf("cannot identify asset from locator")
	}

	result, err := s.fetcher.Fetch(ctx, locator)
	if err != nil {
		return nil, err
	}

	return &database.DiscoveredCandidate{
		Locator:      locator,
		BaseName:     identity.BaseName,
		Version:      identity.Version,
		ContentHash:  result.Hash,
		Size:         result.Size,
		SourcePage:   page,
		DiscoveredAt: time.Now(),
	}, nil
}

func (s *Scanner) trackedLocators() (map[string]bool, error) {
	assets, err := s.assets.GetActiveAssets()
	if err != nil {
		return nil, fmt.Errorf("failed to load active assets: %w", err)
	}

	locators := make(map[string]bool, len(assets))
	for _, asset := range assets {
		locators[asset.Locator] = true
	}
	return locators, nil
}

func isAssetPath(path string) bool {
	return strings.HasSuffix(path, ".js") || strings.HasSuffix(path, ".css")
}
