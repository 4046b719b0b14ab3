package fossil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/pkgmeta/pkg/httputil"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	hc := httputil.NewClient(httputil.WithTimeout(time.Second))
	t.Cleanup(hc.Close)
	return NewClient(hc)
}

func TestClientTimeline(t *testing.T) {
	var gotPath, gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repo/json/timeline" {
			http.NotFound(w, r)
			return
		}
		gotPath = r.URL.Query().Get("p")
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`{"payload":{"timeline":[
			{"uuid":"a1b2c3d4e5f6a7b8c9d0","timestamp":1705328587},
			{"hash":"0123456789abcdef","timestamp":"2023-12-01 08:00:00"},
			{"uuid":"ffffffffffff","timestamp":null}
		]}}`))
	}))
	defer server.Close()

	got, err := testClient(t).Timeline(context.Background(), server.URL+"/repo", "modules/ftp", 3)
	if err != nil {
		t.Fatalf("Timeline() error: %v", err)
	}
	if gotPath != "modules/ftp" || gotLimit != "3" {
		t.Errorf("query p=%q limit=%q", gotPath, gotLimit)
	}
	want := []Checkin{
		{Hash: "a1b2c3d4e5", Date: time.Date(2024, 1, 15, 14, 23, 7, 0, time.UTC)},
		{Hash: "0123456789", Date: time.Date(2023, 12, 1, 8, 0, 0, 0, time.UTC)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Timeline() mismatch (-want +got):\n%s", diff)
	}
}

func TestClientTimelineEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultCode":"FOSSIL-2002","payload":null}`))
	}))
	defer server.Close()

	got, err := testClient(t).Timeline(context.Background(), server.URL, "", 5)
	if err != nil {
		t.Fatalf("Timeline() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no check-ins, got %v", got)
	}
}

func TestClientTagList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"strings", `{"payload":{"tags":["trunk","sym-tcllib-1-21"]}}`, []string{"trunk", "tcllib-1-21"}},
		{"objects", `{"tags":[{"name":"release"},{"tagname":"v2.0"}]}`, []string{"release", "v2.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			got, err := testClient(t).TagList(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("TagList() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("TagList() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClientLatestFromHTML(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`<div><span class='timelineHistDsp'>2024-02-10 09:30:00</span>
			<a href="/repo/info/deadbeef0123456789">check-in</a></div>`))
	}))
	defer server.Close()

	ci, ok, err := testClient(t).LatestFromHTML(context.Background(), server.URL, "modules/ftp")
	if err != nil || !ok {
		t.Fatalf("LatestFromHTML() = ok %v, err %v", ok, err)
	}
	if gotQuery != "n=1&p=modules%2Fftp" {
		t.Errorf("query = %q", gotQuery)
	}
	want := Checkin{Hash: "deadbeef01", Date: time.Date(2024, 2, 10, 9, 30, 0, 0, time.UTC)}
	if diff := cmp.Diff(want, ci); diff != "" {
		t.Errorf("LatestFromHTML() mismatch (-want +got):\n%s", diff)
	}
}

func TestClientSymbolicNames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/brlist" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<ul><li><a href="timeline?r=trunk">trunk</a></li>
			<li><a href="/repo/timeline?r=core-8-6-branch">core-8-6-branch</a></li></ul>`))
	}))
	defer server.Close()

	got, err := testClient(t).SymbolicNames(context.Background(), server.URL, "brlist")
	if err != nil {
		t.Fatalf("SymbolicNames() error: %v", err)
	}
	if diff := cmp.Diff([]string{"trunk", "core-8-6-branch"}, got); diff != "" {
		t.Errorf("SymbolicNames() mismatch (-want +got):\n%s", diff)
	}
}
