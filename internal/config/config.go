package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Static inputs
	KnowledgePath string
	CorpusPath    string
	IndexPath     string

	// Retrieval
	SimilarityBackend string
	DenseDims         int
	SentenceSplitter  string
	ChunkMaxChars     int
	TopK              int
	MMRLambda         float64
	MMRPool           int
	MinScore          float64
	MaxBullets        int

	// Engine
	DefaultDetail   string
	AnswerCacheSize int

	// Rebuild pipeline
	MaxQueueSize        int
	JobTTL              time.Duration
	MaxParseConcurrency int
	RebuildOnStart      bool

	// PDF
	PDFFallbackPdftotext bool

	// Logging
	LogLevel  string
	LogFormat string

	MaxRequestBytes int64
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		KnowledgePath: envOr("KNOWLEDGE_PATH", "data/knowledge.yaml"),
		CorpusPath:    envOr("CORPUS_PATH", "data/corpus.yaml"),
		IndexPath:     envOr("INDEX_PATH", "data/index.json"),

		SimilarityBackend: strings.ToLower(envOr("SIMILARITY_BACKEND", "termweight")),
		DenseDims:         envInt("DENSE_DIMS", 384),
		SentenceSplitter:  strings.ToLower(envOr("SENTENCE_SPLITTER", "regex")),
		ChunkMaxChars:     envInt("CHUNK_MAX_CHARS", 900),
		TopK:              envInt("TOP_K", 6),
		MMRLambda:         envFloat("MMR_LAMBDA", 0.7),
		MMRPool:           envInt("MMR_POOL", 30),
		MinScore:          envFloat("MIN_SCORE", 0.05),
		MaxBullets:        envInt("MAX_BULLETS", 10),

		DefaultDetail:   strings.ToLower(envOr("DEFAULT_DETAIL", "standard")),
		AnswerCacheSize: envInt("ANSWER_CACHE_SIZE", 256),

		MaxQueueSize:        envInt("MAX_QUEUE_SIZE", 8),
		JobTTL:              envDuration("JOB_TTL", 1*time.Hour),
		MaxParseConcurrency: envInt("MAX_PARSE_CONCURRENCY", 4),
		RebuildOnStart:      envBool("REBUILD_ON_START", false),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel:  strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envOr("LOG_FORMAT", "json")),

		MaxRequestBytes: envInt64("MAX_REQUEST_BYTES", 1<<20), // 1MB
	}

	if cfg.DenseDims <= 0 {
		cfg.DenseDims = 384
	}
	if cfg.ChunkMaxChars <= 0 {
		cfg.ChunkMaxChars = 900
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 6
	}
	if cfg.MMRPool <= 0 {
		cfg.MMRPool = 30
	}
	if cfg.MinScore < 0 {
		cfg.MinScore = 0.05
	}
	if cfg.MaxBullets <= 0 {
		cfg.MaxBullets = 10
	}
	if cfg.AnswerCacheSize <= 0 {
		cfg.AnswerCacheSize = 256
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 8
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.MaxParseConcurrency <= 0 {
		cfg.MaxParseConcurrency = 4
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = 1 << 20
	}

	return cfg
}

func (c Config) Validate() error {
	if c.MMRLambda < 0 || c.MMRLambda > 1 {
		return fmt.Errorf("MMR_LAMBDA must be within [0,1], got %v", c.MMRLambda)
	}
	switch c.SimilarityBackend {
	case "termweight", "dense":
	default:
		return fmt.Errorf("unknown SIMILARITY_BACKEND %q", c.SimilarityBackend)
	}
	switch c.SentenceSplitter {
	case "regex", "prose":
	default:
		return fmt.Errorf("unknown SENTENCE_SPLITTER %q", c.SentenceSplitter)
	}
	switch c.DefaultDetail {
	case "brief", "standard", "deep":
	default:
		return fmt.Errorf("unknown DEFAULT_DETAIL %q", c.DefaultDetail)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
