// Package feed renders a profile's published episodes as an RSS 2.0 feed
// with the iTunes podcast namespace (spec.md §6), grounded on the original
// Python implementation's rss_generator.py template.
package feed

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

// Channel describes the podcast-level feed metadata a profile maps onto.
type Channel struct {
	Title       string
	Description string
	WebsiteURL  string
	FeedURL     string
	Author      string
	Email       string
	ImageURL    string
	Category    string
	Subcategory string
	Copyright   string
	Explicit    bool
	AudioBaseURL string // used to build an episode's enclosure URL when Episode.AudioURL is a bare filesystem path
}

// ChannelFromProfile derives feed-level metadata from a profile. The category
// is always "News" / "Daily News"; the website and image URLs are left empty,
// and no setting overrides these fields.
func ChannelFromProfile(p model.Profile, feedURL, audioBaseURL string) Channel {
	return Channel{
		Title:        p.Name,
		Description:  fmt.Sprintf("%s — %s", p.Name, p.Audience),
		FeedURL:      feedURL,
		Author:       p.Name,
		Category:     "News",
		Subcategory:  "Daily News",
		Explicit:     false,
		AudioBaseURL: audioBaseURL,
	}
}

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	XMLNSItunes string `xml:"xmlns:itunes,attr"`
	XMLNSAtom   string `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string      `xml:"title"`
	Link          string      `xml:"link"`
	Language      string      `xml:"language"`
	Copyright     string      `xml:"copyright,omitempty"`
	ItunesAuthor  string      `xml:"itunes:author"`
	Description   string      `xml:"description"`
	ItunesSummary string      `xml:"itunes:summary"`
	ItunesOwner   itunesOwner `xml:"itunes:owner"`
	ItunesImage   itunesHref  `xml:"itunes:image"`
	ItunesCategory itunesCategory `xml:"itunes:category"`
	ItunesExplicit string     `xml:"itunes:explicit"`
	AtomLink      atomLink    `xml:"atom:link"`
	Items         []rssItem   `xml:"item"`
}

type itunesOwner struct {
	Name  string `xml:"itunes:name"`
	Email string `xml:"itunes:email"`
}

type itunesHref struct {
	Href string `xml:"href,attr"`
}

type itunesCategory struct {
	Text string          `xml:"text,attr"`
	Sub  *itunesCategory `xml:"itunes:category,omitempty"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title          string    `xml:"title"`
	ItunesTitle    string    `xml:"itunes:title"`
	Description    cdata     `xml:"description"`
	ItunesSummary  string    `xml:"itunes:summary"`
	Enclosure      enclosure `xml:"enclosure"`
	GUID           guid      `xml:"guid"`
	PubDate        string    `xml:"pubDate"`
	ItunesDuration string    `xml:"itunes:duration"`
	ItunesExplicit string    `xml:"itunes:explicit"`
	ItunesType     string    `xml:"itunes:episodeType"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type guid struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// sizeHeuristicBytesPerSecond is the fallback enclosure-size estimate when an
// episode's actual file size is unknown (spec.md §6: durationSeconds × 16000).
const sizeHeuristicBytesPerSecond = 16000

// Render builds an RSS 2.0 + iTunes feed document for one episode channel.
// episodes should already be filtered to the profile and sorted however the
// caller wants them to appear (newest first is conventional).
func Render(ch Channel, episodes []model.Episode) ([]byte, error) {
	explicit := "no"
	if ch.Explicit {
		explicit = "yes"
	}

	items := make([]rssItem, 0, len(episodes))
	for _, ep := range episodes {
		items = append(items, buildItem(ch, ep))
	}

	doc := rssFeed{
		Version:     "2.0",
		XMLNSItunes: "http://www.itunes.com/dtds/podcast-1.0.dtd",
		XMLNSAtom:   "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:         ch.Title,
			Link:          ch.WebsiteURL,
			Language:      "en-us",
			Copyright:     ch.Copyright,
			ItunesAuthor:  ch.Author,
			Description:   ch.Description,
			ItunesSummary: ch.Description,
			ItunesOwner:   itunesOwner{Name: ch.Author, Email: ch.Email},
			ItunesImage:   itunesHref{Href: ch.ImageURL},
			ItunesCategory: itunesCategory{
				Text: ch.Category,
				Sub:  &itunesCategory{Text: ch.Subcategory},
			},
			ItunesExplicit: explicit,
			AtomLink:       atomLink{Href: ch.FeedURL, Rel: "self", Type: "application/rss+xml"},
			Items:          items,
		},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render feed: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func buildItem(ch Channel, ep model.Episode) rssItem {
	audioURL := ep.AudioURL
	if ch.AudioBaseURL != "" && !strings.HasPrefix(audioURL, "http://") && !strings.HasPrefix(audioURL, "https://") {
		audioURL = strings.TrimRight(ch.AudioBaseURL, "/") + "/" + ep.ID + ".mp3"
	}

	return rssItem{
		Title:         ep.Title,
		ItunesTitle:   ep.Title,
		Description:   cdata{Text: ep.Description},
		ItunesSummary: summarize(ep.Description, 200),
		Enclosure: enclosure{
			URL:    audioURL,
			Length: int64(ep.DurationSeconds * sizeHeuristicBytesPerSecond),
			Type:   "audio/mpeg",
		},
		GUID:           guid{IsPermaLink: "false", Value: ep.ID},
		PubDate:        ep.PublishedAt.UTC().Format(time.RFC1123Z),
		ItunesDuration: formatDuration(int(ep.DurationSeconds)),
		ItunesExplicit: "no",
		ItunesType:     "full",
	}
}

func summarize(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// formatDuration renders whole seconds as HH:MM:SS per spec.md §6.
func formatDuration(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
