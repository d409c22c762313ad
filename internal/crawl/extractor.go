package crawl

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"natro/internal/model"
)

// ParsedDoc is the structured view of one fetched page.
type ParsedDoc struct {
	Title       string
	Description string
	Content     string
	Links       []model.ParsedLink
	Language    string
	Favicon     string
}

// Parse extracts structured fields from raw markup. Field precedence follows
// first-non-empty-wins chains: Open Graph, then Twitter card, then the plain
// document markup, then a literal fallback.
func Parse(html, baseURL string) (*ParsedDoc, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	title := extractTitle(doc)
	description := extractDescription(doc)
	// Content extraction strips chrome elements from the document, so links
	// inside nav/header/footer are intentionally gone by the time links are
	// collected.
	content := extractContent(doc)
	links := extractLinks(doc, base)
	language := extractLanguage(doc)
	favicon := extractFavicon(doc, base)

	return &ParsedDoc{
		Title:       title,
		Description: description,
		Content:     content,
		Links:       links,
		Language:    language,
		Favicon:     favicon,
	}, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

func extractTitle(doc *goquery.Document) string {
	if t := metaContent(doc, `meta[property="og:title"]`); t != "" {
		return t
	}
	if t := metaContent(doc, `meta[name="twitter:title"]`); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return "Untitled Page"
}

func extractDescription(doc *goquery.Document) string {
	if d := metaContent(doc, `meta[property="og:description"]`); d != "" {
		return d
	}
	if d := metaContent(doc, `meta[name="twitter:description"]`); d != "" {
		return d
	}
	if d := metaContent(doc, `meta[name="description"]`); d != "" {
		return d
	}
	if p := strings.TrimSpace(doc.Find("p").First().Text()); p != "" {
		return truncateRunes(p, 200)
	}
	return ""
}

func extractContent(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, iframe, noscript").Remove()

	var text string
	for _, selector := range []string{"main", "article", `[role="main"]`} {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			text = sel.Text()
			break
		}
	}
	if text == "" {
		text = doc.Find("body").Text()
	}
	return strings.Join(strings.Fields(text), " ")
}

func extractLinks(doc *goquery.Document, base *url.URL) []model.ParsedLink {
	var links []model.ParsedLink
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		absolute := base.ResolveReference(ref)
		if absolute.Scheme != "http" && absolute.Scheme != "https" {
			return
		}
		absURL := absolute.String()
		if seen[absURL] {
			return
		}
		seen[absURL] = true

		linkType := model.LinkExternal
		if absolute.Hostname() == base.Hostname() {
			linkType = model.LinkInternal
		}
		links = append(links, model.ParsedLink{
			URL:        absURL,
			AnchorText: strings.TrimSpace(a.Text()),
			Type:       linkType,
		})
	})
	return links
}

func extractLanguage(doc *goquery.Document) string {
	if lang := doc.Find("html").First().AttrOr("lang", ""); lang != "" {
		return strings.SplitN(lang, "-", 2)[0]
	}
	if lang := metaContent(doc, `meta[http-equiv="content-language"]`); lang != "" {
		return strings.SplitN(lang, "-", 2)[0]
	}
	return "en"
}

func extractFavicon(doc *goquery.Document, base *url.URL) string {
	for _, selector := range []string{`link[rel="icon"]`, `link[rel="shortcut icon"]`, `link[rel="apple-touch-icon"]`} {
		href := doc.Find(selector).First().AttrOr("href", "")
		if href == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String()
	}
	return base.Scheme + "://" + base.Hostname() + "/favicon.ico"
}

var imageExtRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg)$`)

// DetectContentType classifies a page as web, news, video or image using
// ordered heuristics over the URL and raw markup. Video wins over image wins
// over news.
func DetectContentType(html, rawurl string) model.ContentType {
	urlLower := strings.ToLower(rawurl)

	if strings.Contains(urlLower, "youtube.com") ||
		strings.Contains(urlLower, "vimeo.com") ||
		strings.Contains(urlLower, "dailymotion.com") ||
		strings.Contains(html, "<video") ||
		strings.Contains(html, "player.vimeo") ||
		strings.Contains(html, "youtube.com/embed") {
		return model.ContentVideo
	}

	if imageExtRe.MatchString(urlLower) ||
		strings.Contains(urlLower, "imgur.com") ||
		strings.Contains(urlLower, "flickr.com") ||
		strings.Contains(html, `og:type" content="image`) {
		return model.ContentImage
	}

	if strings.Contains(urlLower, "/news/") ||
		strings.Contains(urlLower, "/article/") ||
		strings.Contains(urlLower, "/blog/") ||
		strings.Contains(html, "article:published_time") ||
		strings.Contains(html, "datePublished") ||
		strings.Contains(html, "<article") {
		return model.ContentNews
	}

	return model.ContentWeb
}

// ExtractMediaMetadata pulls Open Graph media fields plus publish date and
// author; type-specific fields only for video/image pages.
func ExtractMediaMetadata(html string, contentType model.ContentType) model.MediaMetadata {
	var meta model.MediaMetadata

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}

	meta.ImageURL = metaContent(doc, `meta[property="og:image"]`)
	meta.VideoURL = metaContent(doc, `meta[property="og:video"]`)
	meta.Author = metaContent(doc, `meta[name="author"]`)

	if published := metaContent(doc, `meta[property="article:published_time"]`); published != "" {
		if t, ok := parseDate(published); ok {
			meta.PublishedDate = &t
		}
	}

	switch contentType {
	case model.ContentVideo:
		if d := metaContent(doc, `meta[property="video:duration"]`); d != "" {
			meta.VideoDuration = atoiSafe(d)
		}
		meta.ThumbnailURL = meta.ImageURL
	case model.ContentImage:
		if w := metaContent(doc, `meta[property="og:image:width"]`); w != "" {
			meta.ImageWidth = atoiSafe(w)
		}
		if h := metaContent(doc, `meta[property="og:image:height"]`); h != "" {
			meta.ImageHeight = atoiSafe(h)
		}
	}
	return meta
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
