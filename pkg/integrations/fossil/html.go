package fossil

import (
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	histDspPattern  = regexp.MustCompile(`timelineHistDsp[^>]*>\s*(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2})`)
	dateCellPattern = regexp.MustCompile(`timelineDateCell[^>]*>\s*<[^>]*>\s*(\d{4}-\d{2}-\d{2})`)
	isoPattern      = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2})`)
	infoHashPattern = regexp.MustCompile(`/info/([0-9a-f]{10,40})`)
	ciHashPattern   = regexp.MustCompile(`[?&]c=([0-9a-f]{10,40})`)
)

// ParseTimelineHTML extracts the first check-in date and hash from a
// timeline page. Skins differ, so the most specific markup is tried first
// and a bare ISO date anywhere in the page is the last resort. The hash may
// be empty even when ok is true.
func ParseTimelineHTML(page string) (ci Checkin, ok bool) {
	var raw string
	for _, re := range []*regexp.Regexp{histDspPattern, dateCellPattern, isoPattern} {
		if m := re.FindStringSubmatch(page); m != nil {
			raw = m[1]
			break
		}
	}
	if raw == "" {
		return Checkin{}, false
	}
	date, ok := parseDate(strings.Join(strings.Fields(raw), " "))
	if !ok {
		return Checkin{}, false
	}
	ci.Date = date

	if m := infoHashPattern.FindStringSubmatch(page); m != nil {
		ci.Hash = shorten(m[1])
	} else if m := ciHashPattern.FindStringSubmatch(page); m != nil {
		ci.Hash = shorten(m[1])
	}
	return ci, true
}

// ParseSymbolicNames returns, in page order, the names linked from a tag or
// branch listing: anchors pointing at timeline?t=NAME or timeline?r=NAME.
func ParseSymbolicNames(r io.Reader) []string {
	var names []string
	seen := make(map[string]bool)

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return names
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "a" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key != "href" {
					continue
				}
				if name := timelineRef(attr.Val); name != "" && !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
	}
}

func timelineRef(href string) string {
	u, err := url.Parse(href)
	if err != nil || path.Base(u.Path) != "timeline" {
		return ""
	}
	q := u.Query()
	if t := q.Get("t"); t != "" {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(q.Get("r"))
}
