// Command seed fills the item catalog with a reproducible test corpus. It can
// write straight to Postgres, post items to a running service, or dump JSON
// for offline use. Titles mix Korean popular keywords with English filler so
// tokenization is exercised across scripts.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/xxng1/searchpilot/internal/catalog"
	"github.com/xxng1/searchpilot/pkg/config"
	"github.com/xxng1/searchpilot/pkg/logger"
	"github.com/xxng1/searchpilot/pkg/postgres"
)

var categories = []string{
	"전자제품", "의류", "도서", "식품", "가구",
	"스포츠", "완구", "화장품", "가전", "악기",
	"자동차용품", "반려동물용품", "문구", "주방용품", "침구",
}

var popularKeywords = []string{
	"스마트폰", "노트북", "헤드폰", "키보드", "마우스",
	"청바지", "티셔츠", "운동화", "가방", "지갑",
	"소설", "자기계발", "요리책", "만화", "잡지",
	"과자", "음료", "라면", "커피", "차",
	"책상", "의자", "침대", "소파", "서랍장",
}

var fillerWords = []string{
	"premium", "classic", "compact", "wireless", "portable",
	"deluxe", "modern", "vintage", "eco", "smart",
	"pro", "mini", "ultra", "light", "slim",
}

func main() {
	var (
		configPath = flag.String("config", "configs/development.yaml", "path to config file")
		count      = flag.Int("count", 100000, "number of items to generate")
		seed       = flag.Int64("seed", 42, "random seed for reproducible corpora")
		batchSize  = flag.Int("batch", 1000, "batch size for postgres writes")
		out        = flag.String("out", "postgres", "output: postgres, http, or a .json file path")
		target     = flag.String("target", "http://localhost:8000", "service base URL for -out=http")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, "text")

	rng := rand.New(rand.NewSource(*seed))
	items := generate(rng, *count)
	slog.Info("corpus generated", "items", len(items), "seed", *seed)

	ctx := context.Background()
	switch {
	case *out == "postgres":
		err = writePostgres(ctx, cfg, items, *batchSize)
	case *out == "http":
		err = writeHTTP(ctx, *target, items)
	case strings.HasSuffix(*out, ".json"):
		err = writeJSON(*out, items)
	default:
		err = fmt.Errorf("unknown output %q", *out)
	}
	if err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	slog.Info("seeding complete", "items", len(items), "out", *out)
}

func generate(rng *rand.Rand, count int) []*catalog.Item {
	now := time.Now().UTC()
	items := make([]*catalog.Item, 0, count)
	for i := 0; i < count; i++ {
		var title string
		if rng.Float64() < 0.8 {
			title = fmt.Sprintf("%s %s %s",
				popularKeywords[rng.Intn(len(popularKeywords))],
				fillerWords[rng.Intn(len(fillerWords))],
				fillerWords[rng.Intn(len(fillerWords))],
			)
		} else {
			n := 2 + rng.Intn(4)
			words := make([]string, n)
			for j := range words {
				words[j] = fillerWords[rng.Intn(len(fillerWords))]
			}
			title = strings.Join(words, " ")
		}

		tagCount := 2 + rng.Intn(4)
		tags := make([]string, 0, tagCount)
		for j := 0; j < tagCount; j++ {
			if rng.Float64() < 0.5 {
				tags = append(tags, popularKeywords[rng.Intn(len(popularKeywords))])
			} else {
				tags = append(tags, fillerWords[rng.Intn(len(fillerWords))])
			}
		}

		description := fmt.Sprintf("%s 상품 상세 설명. %s quality, %s design.",
			title,
			fillerWords[rng.Intn(len(fillerWords))],
			fillerWords[rng.Intn(len(fillerWords))],
		)
		category := categories[rng.Intn(len(categories))]
		tagStr := strings.Join(tags, ",")
		// Round prices to 100-won units; pareto-shaped popularity.
		price := math.Round((1000+rng.Float64()*999000)/100) * 100
		popularity := int64(100 * math.Pow(rng.Float64(), -1/1.5))
		created := now.AddDate(0, 0, -rng.Intn(366))

		items = append(items, &catalog.Item{
			ID:          int64(i + 1),
			Title:       title,
			Description: &description,
			Category:    &category,
			Tags:        &tagStr,
			Price:       &price,
			Popularity:  popularity,
			CreatedAt:   created,
			UpdatedAt:   created,
		})
	}
	return items
}

func writePostgres(ctx context.Context, cfg *config.Config, items []*catalog.Item, batchSize int) error {
	client, err := postgres.New(cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer client.Close()

	repo, err := catalog.NewRepository(ctx, client)
	if err != nil {
		return fmt.Errorf("preparing catalog: %w", err)
	}
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		if err := repo.SaveBatch(ctx, items[start:end]); err != nil {
			return fmt.Errorf("saving batch at %d: %w", start, err)
		}
		slog.Info("batch saved", "done", end, "total", len(items))
	}
	return nil
}

func writeHTTP(ctx context.Context, target string, items []*catalog.Item) error {
	client := &http.Client{Timeout: 10 * time.Second}
	url := strings.TrimRight(target, "/") + "/api/items"
	for i, item := range items {
		body, err := json.Marshal(item)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("posting item %d: %w", item.ID, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("posting item %d: unexpected status %d", item.ID, resp.StatusCode)
		}
		if (i+1)%1000 == 0 {
			slog.Info("progress", "done", i+1, "total", len(items))
		}
	}
	return nil
}

func writeJSON(path string, items []*catalog.Item) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}
