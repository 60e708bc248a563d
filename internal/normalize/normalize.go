// Package normalize converts parsed feed items into articles. Feeds differ
// wildly in which optional fields they fill; every extraction here walks a
// fallback chain and ends in a safe default.
package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"newswatch/internal/model"
)

// DefaultImageURL is used when an entry carries no usable image.
const DefaultImageURL = "https://static.newswatch.dev/images/placeholder-192.png"

var tagRe = regexp.MustCompile(`<[^<]+?>`)

// Entry builds an Article from a feed item. It never fails: absent fields
// become empty strings, a nil publication time, or the placeholder image.
func Entry(item *gofeed.Item, feedName string) model.Article {
	a := model.Article{
		ID:       model.ArticleID(item.Title, feedName),
		Title:    item.Title,
		Link:     item.Link,
		ImageURL: imageURL(item),
		FeedName: feedName,
		Summary:  summary(item),
	}
	if item.PublishedParsed != nil {
		t := *item.PublishedParsed
		a.Published = &t
	}
	return a
}

// imageURL picks the article image: enclosure, then media:content, then
// media:thumbnail, then the first <img> in the entry HTML, then the
// placeholder.
func imageURL(item *gofeed.Item) string {
	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil && item.Enclosures[0].URL != "" {
		return item.Enclosures[0].URL
	}
	if url := mediaURL(item, "content"); url != "" {
		return url
	}
	if url := mediaURL(item, "thumbnail"); url != "" {
		return url
	}
	if url := firstImgSrc(item.Description); url != "" {
		return url
	}
	if url := firstImgSrc(item.Content); url != "" {
		return url
	}
	return DefaultImageURL
}

func mediaURL(item *gofeed.Item, name string) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	exts := media[name]
	if len(exts) == 0 {
		return ""
	}
	return exts[0].Attrs["url"]
}

func firstImgSrc(htmlText string) string {
	if htmlText == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}

// summary prefers the full content block over the short description.
func summary(item *gofeed.Item) string {
	if item.Content != "" {
		return cleanHTML(item.Content)
	}
	if item.Description != "" {
		return cleanHTML(item.Description)
	}
	return ""
}

// cleanHTML unescapes entities first so that pre-escaped markup is also
// stripped, then removes tags and trims.
func cleanHTML(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(tagRe.ReplaceAllString(html.UnescapeString(text), ""))
}
