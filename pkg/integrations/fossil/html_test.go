package fossil

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseTimelineHTML(t *testing.T) {
	tests := []struct {
		name   string
		page   string
		want   Checkin
		wantOK bool
	}{
		{
			name:   "hist display span",
			page:   `<span class="timelineHistDsp">2024-01-15 14:23:07</span><a href="?c=abcdef0123456">x</a>`,
			want:   Checkin{Hash: "abcdef0123", Date: time.Date(2024, 1, 15, 14, 23, 7, 0, time.UTC)},
			wantOK: true,
		},
		{
			name:   "date cell",
			page:   `<td class="timelineDateCell"><a href="x">2023-06-01</a></td>`,
			want:   Checkin{Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)},
			wantOK: true,
		},
		{
			name:   "generic iso",
			page:   `<p>Last change 2022-03-04T05:06:07</p><a href="/r/info/0011223344556677">i</a>`,
			want:   Checkin{Hash: "0011223344", Date: time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)},
			wantOK: true,
		},
		{
			name: "no date",
			page: `<html><body>Access denied</body></html>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimelineHTML(tt.page)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseTimelineHTML() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSymbolicNames(t *testing.T) {
	page := `<html><body>
		<a href="/tcllib/timeline?t=tcllib-1-21">tcllib-1-21</a>
		<a href="/tcllib/timeline?t=trunk&amp;n=20">trunk</a>
		<a href="/tcllib/info/abc">not a tag</a>
		<a href="/tcllib/timeline?t=tcllib-1-21">dup</a>
		<a href="/tcllib/timeline?r=tcllib-1-20-branch">branch</a>
	</body></html>`

	got := ParseSymbolicNames(strings.NewReader(page))
	want := []string{"tcllib-1-21", "trunk", "tcllib-1-20-branch"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseSymbolicNames() mismatch (-want +got):\n%s", diff)
	}
}
