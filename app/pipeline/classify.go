package pipeline

import (
	"net/url"
	"strings"

	"github.com/lysyi3m/autoleech/app/feed"
)

// DescriptorKind tells how a link can be handed to the download daemon.
type DescriptorKind int

const (
	KindNone   DescriptorKind = iota
	KindDirect                // self-contained URI, e.g. magnet:
	KindRemote                // downloadable .torrent file
)

const torrentMIMEType = "application/x-bittorrent"

func (k DescriptorKind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindRemote:
		return "remote"
	default:
		return "none"
	}
}

func Classify(link string) DescriptorKind {
	link = strings.TrimSpace(link)
	if link == "" {
		return KindNone
	}

	lower := strings.ToLower(link)
	if strings.HasPrefix(lower, "magnet:") {
		return KindDirect
	}

	parsed, err := url.Parse(link)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return KindNone
	}

	if strings.HasSuffix(strings.ToLower(parsed.Path), ".torrent") || strings.HasSuffix(lower, ".torrent") {
		return KindRemote
	}

	return KindNone
}

// descriptor picks the link to submit for item. An item without a link yields
// KindNone. A link that is not a descriptor falls back to a torrent enclosure.
func descriptor(item feed.Item) (string, DescriptorKind) {
	if item.Link == "" {
		return "", KindNone
	}

	if kind := Classify(item.Link); kind != KindNone {
		return item.Link, kind
	}

	if item.EnclosureURL == "" {
		return "", KindNone
	}
	if kind := Classify(item.EnclosureURL); kind != KindNone {
		return item.EnclosureURL, kind
	}
	if strings.EqualFold(item.EnclosureType, torrentMIMEType) && isHTTP(item.EnclosureURL) {
		return item.EnclosureURL, KindRemote
	}

	return "", KindNone
}

func isHTTP(link string) bool {
	parsed, err := url.Parse(link)
	return err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
