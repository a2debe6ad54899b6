package harvestbook

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// handleFeed serves an RSS 2.0 feed of published blog posts.
func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.posts.ListPublished("")
	if err != nil {
		return err
	}
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		pubDate := ""
		if p.PublishedAt != nil {
			pubDate = p.PublishedAt.Format(time.RFC1123Z)
		}
		link := fmt.Sprintf("%s/api/v1/blog-posts/%d", a.cfg.SiteURL, p.ID)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        link,
			Description: p.Content,
			PubDate:     pubDate,
			GUID:        link,
		})
	}
	feed := rss{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.cfg.SiteName,
			Link:        a.cfg.SiteURL,
			Description: "Published posts from the family archive",
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
