package model

import "time"

type FrontierStatus string

const (
	FrontierPending    FrontierStatus = "pending"
	FrontierProcessing FrontierStatus = "processing"
	FrontierCompleted  FrontierStatus = "completed"
	FrontierFailed     FrontierStatus = "failed"
)

// MaxRetries is the retry budget for a frontier item. Once exhausted the
// item is terminal and never claimed again.
const MaxRetries = 3

type FrontierItem struct {
	ID           string         `json:"id"`
	URL          string         `json:"url"`
	Priority     int            `json:"priority"`
	Depth        int            `json:"depth"`
	Status       FrontierStatus `json:"status"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	RetryCount   int            `json:"retryCount"`
	ScheduledAt  time.Time      `json:"scheduledAt"`
	ProcessedAt  *time.Time     `json:"processedAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type ContentType string

const (
	ContentWeb   ContentType = "web"
	ContentNews  ContentType = "news"
	ContentVideo ContentType = "video"
	ContentImage ContentType = "image"
)

type LinkType string

const (
	LinkInternal LinkType = "internal"
	LinkExternal LinkType = "external"
)

type ParsedLink struct {
	URL        string   `json:"url"`
	AnchorText string   `json:"anchorText"`
	Type       LinkType `json:"type"`
}

type Keyword struct {
	Term      string  `json:"term"`
	Frequency int     `json:"frequency"`
	Relevance float64 `json:"relevance"`
}

type MediaMetadata struct {
	ImageURL      string     `json:"imageUrl,omitempty"`
	VideoURL      string     `json:"videoUrl,omitempty"`
	ThumbnailURL  string     `json:"thumbnailUrl,omitempty"`
	PublishedDate *time.Time `json:"publishedDate,omitempty"`
	Author        string     `json:"author,omitempty"`
	VideoDuration int        `json:"videoDuration,omitempty"`
	ImageWidth    int        `json:"imageWidth,omitempty"`
	ImageHeight   int        `json:"imageHeight,omitempty"`
}

type PageStatus string

const (
	PageActive   PageStatus = "active"
	PageInactive PageStatus = "inactive"
	PageError    PageStatus = "error"
)

// IndexedPage is the durable page record. Identity is the normalized URL;
// re-crawling the same URL overwrites content fields in place.
type IndexedPage struct {
	ID            string
	URL           string
	Title         string
	Description   string
	Content       string
	Language      string
	FaviconURL    string
	Domain        string
	Path          string
	PageRank      float64
	WordCount     int
	ContentType   ContentType
	PublishedDate *time.Time
	Author        string
	ImageURL      string
	VideoURL      string
	VideoDuration int
	ImageWidth    int
	ImageHeight   int
	ThumbnailURL  string
	Category      string
	AISummary     string
	AITags        []string
	Status        PageStatus
	CrawledAt     time.Time
	LastIndexedAt time.Time
	UpdatedAt     time.Time
}

// ContentAnalysis holds the output of the external content classifier. A nil
// analysis means the page was indexed without enrichment.
type ContentAnalysis struct {
	Summary      string   `json:"summary"`
	Sentiment    string   `json:"sentiment"`
	Topics       []string `json:"topics"`
	Entities     []string `json:"entities"`
	QualityScore float64  `json:"qualityScore"`
	SpamScore    float64  `json:"spamScore"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
}

type SearchOptions struct {
	Page        int
	PerPage     int
	Language    string
	Domain      string
	ContentType ContentType
}

type SearchResult struct {
	ID                 string      `json:"id"`
	URL                string      `json:"url"`
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	Domain             string      `json:"domain"`
	Favicon            string      `json:"favicon"`
	Score              float64     `json:"score"`
	Snippet            string      `json:"snippet"`
	HighlightedTitle   string      `json:"highlightedTitle"`
	HighlightedSnippet string      `json:"highlightedSnippet"`
	ContentType        ContentType `json:"contentType"`
	ImageURL           string      `json:"imageUrl,omitempty"`
	VideoURL           string      `json:"videoUrl,omitempty"`
	ThumbnailURL       string      `json:"thumbnailUrl,omitempty"`
	PublishedDate      *time.Time  `json:"publishedDate,omitempty"`
	Author             string      `json:"author,omitempty"`
}

type SearchResponse struct {
	Results          []SearchResult `json:"results"`
	TotalResults     int            `json:"totalResults"`
	Page             int            `json:"page"`
	PerPage          int            `json:"perPage"`
	TotalPages       int            `json:"totalPages"`
	Query            string         `json:"query"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	Suggestions      []string       `json:"suggestions,omitempty"`
}
