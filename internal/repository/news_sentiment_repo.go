package repository

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"market-advisor/config"
	"market-advisor/internal/dto"
	"market-advisor/pkg/cache"
	"market-advisor/pkg/logger"
	"market-advisor/pkg/utils"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

// SentimentRepository scores recent news coverage for an asset on a 0-100
// scale. Implementations must return dto.ErrNoSentimentData when nothing
// usable was found; callers degrade to a neutral placeholder in that case.
type SentimentRepository interface {
	GetSentiment(ctx context.Context, asset string, timeframeDays int) (*dto.SentimentSnapshot, error)
}

type newsSentimentRepository struct {
	cfg    *config.Config
	logger *logger.Logger
	cache  cache.Cache
	parser *gofeed.Parser
}

func NewNewsSentimentRepository(cfg *config.Config, log *logger.Logger, inmemoryCache cache.Cache) SentimentRepository {
	return &newsSentimentRepository{
		cfg:    cfg,
		logger: log,
		cache:  inmemoryCache,
		parser: gofeed.NewParser(),
	}
}

func (r *newsSentimentRepository) GetSentiment(ctx context.Context, asset string, timeframeDays int) (*dto.SentimentSnapshot, error) {
	cacheKey := fmt.Sprintf("sentiment:%s:%d", asset, timeframeDays)
	if cached, found := r.cache.Get(cacheKey); found {
		if snapshot, ok := cached.(*dto.SentimentSnapshot); ok {
			return snapshot, nil
		}
	}

	queries := searchQueries(asset)
	cutoff := time.Now().AddDate(0, 0, -timeframeDays)

	var (
		mu       sync.Mutex
		articles []dto.ArticleSentiment
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, query := range queries {
		query := query
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, r.cfg.News.Timeout)
			defer cancel()

			feedURL := fmt.Sprintf("%s?q=%s&hl=en-US&gl=US&ceid=US:en", r.cfg.News.BaseURL, url.QueryEscape(query))
			feed, err := r.parser.ParseURLWithContext(feedURL, fetchCtx)
			if err != nil {
				// One failed query does not sink the others.
				r.logger.WarnContext(gctx, "Failed to fetch news feed",
					logger.StringField("query", query),
					logger.ErrorField(err),
				)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, item := range feed.Items {
				if item.PublishedParsed == nil || item.PublishedParsed.Before(cutoff) {
					continue
				}
				source := ""
				if item.Custom != nil {
					source = item.Custom["source"]
				}
				articles = append(articles, dto.ArticleSentiment{
					Title:       item.Title,
					Source:      source,
					URL:         item.Link,
					PublishedAt: item.PublishedParsed.UTC(),
					Score:       scoreHeadline(item.Title),
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrNoSentimentData, err)
	}

	if len(articles) == 0 {
		return nil, fmt.Errorf("%w: no recent articles for %s", dto.ErrNoSentimentData, asset)
	}

	articles = dedupeByTitle(articles)
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if len(articles) > r.cfg.News.MaxArticles {
		articles = articles[:r.cfg.News.MaxArticles]
	}

	mean := 0.0
	for _, a := range articles {
		mean += a.Score
	}
	mean /= float64(len(articles))

	snapshot := &dto.SentimentSnapshot{
		Score:        utils.Clamp(50+mean*50, 0, 100),
		ArticleCount: len(articles),
		Articles:     articles,
	}

	r.cache.Set(cacheKey, snapshot, r.cfg.News.CacheDuration)
	return snapshot, nil
}

func searchQueries(asset string) []string {
	name := strings.ReplaceAll(strings.ToLower(asset), "_", " ")
	return []string{
		name + " price",
		name + " market news",
	}
}

func dedupeByTitle(articles []dto.ArticleSentiment) []dto.ArticleSentiment {
	seen := make(map[string]bool, len(articles))
	out := articles[:0]
	for _, a := range articles {
		key := strings.ToLower(strings.TrimSpace(a.Title))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

var bullishTerms = []string{
	"surge", "rally", "rallies", "gain", "gains", "rise", "rises", "rising", "jump",
	"jumps", "soar", "soars", "record high", "boom", "bullish", "upbeat", "strong",
	"growth", "beat", "beats", "upgrade", "outperform", "rebound", "recovery",
}

var bearishTerms = []string{
	"fall", "falls", "falling", "drop", "drops", "decline", "declines", "plunge",
	"plunges", "slump", "slumps", "crash", "bearish", "weak", "loss", "losses",
	"cut", "cuts", "fear", "fears", "downgrade", "tumble", "tumbles", "selloff",
	"recession", "record low",
}

// scoreHeadline assigns a [-1, 1] lexicon score to one headline.
func scoreHeadline(title string) float64 {
	text := strings.ToLower(title)

	var pos, neg int
	for _, term := range bullishTerms {
		if strings.Contains(text, term) {
			pos++
		}
	}
	for _, term := range bearishTerms {
		if strings.Contains(text, term) {
			neg++
		}
	}

	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}
