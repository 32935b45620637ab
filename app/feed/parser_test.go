package feed

import (
	"testing"
)

const torrentRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Releases</title>
    <link>https://tracker.example.com</link>
    <description>Latest releases</description>
    <item>
      <title>Movie (2023) 1080p</title>
      <link>magnet:?xt=urn:btih:abc</link>
      <guid>release-1</guid>
    </item>
    <item>
      <title>Show S01E01</title>
      <link>https://tracker.example.com/download/2.torrent</link>
    </item>
    <item>
      <title>Details page only</title>
      <link>https://tracker.example.com/details/3</link>
      <enclosure url="https://tracker.example.com/get/3" length="12345" type="application/x-bittorrent" />
    </item>
    <item>
      <title>No link</title>
      <description>Announcement without a link</description>
    </item>
  </channel>
</rss>`

func TestParseTorrentRSS(t *testing.T) {
	parser := NewParser()
	metadata, items, err := parser.Run([]byte(torrentRSS))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Releases" {
		t.Errorf("Expected title 'Releases', got: %s", metadata.Title)
	}
	if metadata.Link != "https://tracker.example.com" {
		t.Errorf("Expected link 'https://tracker.example.com', got: %s", metadata.Link)
	}

	if len(items) != 4 {
		t.Fatalf("Expected 4 items, got: %d", len(items))
	}

	if items[0].Link != "magnet:?xt=urn:btih:abc" {
		t.Errorf("Expected magnet link, got: %s", items[0].Link)
	}
	if items[0].GUID != "release-1" {
		t.Errorf("Expected GUID 'release-1', got: %s", items[0].GUID)
	}

	if items[1].GUID != items[1].Link {
		t.Errorf("Expected GUID to fall back to link, got: %s", items[1].GUID)
	}

	if items[2].EnclosureURL != "https://tracker.example.com/get/3" {
		t.Errorf("Expected enclosure URL, got: %s", items[2].EnclosureURL)
	}
	if items[2].EnclosureType != "application/x-bittorrent" {
		t.Errorf("Expected enclosure type 'application/x-bittorrent', got: %s", items[2].EnclosureType)
	}

	if items[3].Link != "" {
		t.Errorf("Expected empty link, got: %s", items[3].Link)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link href="https://example.com/files/entry1.torrent"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
  </entry>
</feed>`

	parser := NewParser()
	metadata, items, err := parser.Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Test Atom Feed" {
		t.Errorf("Expected title 'Test Atom Feed', got: %s", metadata.Title)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}
	if items[0].Link != "https://example.com/files/entry1.torrent" {
		t.Errorf("Expected link 'https://example.com/files/entry1.torrent', got: %s", items[0].Link)
	}
	if items[0].GUID != "urn:uuid:entry-1" {
		t.Errorf("Expected GUID 'urn:uuid:entry-1', got: %s", items[0].GUID)
	}
}

func TestParseInvalidFeed(t *testing.T) {
	parser := NewParser()
	_, _, err := parser.Run([]byte("invalid xml"))

	if err == nil {
		t.Error("Expected error for invalid XML")
	}
}
