package ratelimit

import "testing"

func TestClassifyRoute(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		want    Class
		limited bool
	}{
		{name: "feed rss", method: "GET", path: "/feeds/daily/rss", want: ClassDefault, limited: true},
		{name: "feed artwork", method: "GET", path: "/art/daily.png", want: ClassDefault, limited: true},
		{name: "root", method: "GET", path: "/", want: ClassDefault, limited: true},
		{name: "media", method: "GET", path: "/media/ep-001.mp3", want: ClassMedia, limited: true},
		{name: "media head", method: "HEAD", path: "/media/ep-001.mp3", want: ClassMedia, limited: true},
		{name: "admin list", method: "GET", path: "/admin", want: ClassAdminRead, limited: true},
		{name: "admin read nested", method: "GET", path: "/admin/feeds", want: ClassAdminRead, limited: true},
		{name: "admin options", method: "OPTIONS", path: "/admin/feeds", want: ClassAdminRead, limited: true},
		{name: "admin create", method: "POST", path: "/admin/feeds", want: ClassAdminWrite, limited: true},
		{name: "admin update", method: "PUT", path: "/admin/feeds/x", want: ClassAdminWrite, limited: true},
		{name: "admin delete", method: "DELETE", path: "/admin/feeds/x", want: ClassAdminWrite, limited: true},
		{name: "health check exempt", method: "GET", path: "/healthz", limited: false},
		{name: "admin health check exempt", method: "GET", path: "/admin/healthz", limited: false},
		{name: "nested admin path ending in healthz is not exempt", method: "GET", path: "/admin/feeds/healthz", want: ClassAdminRead, limited: true},
		{name: "static asset exempt", method: "GET", path: "/static/app.css", limited: false},
		{name: "media prefix does not match siblings", method: "GET", path: "/mediafoo", want: ClassDefault, limited: true},
		{name: "metrics endpoint is default class", method: "GET", path: "/metrics", want: ClassDefault, limited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, limited := ClassifyRoute(tt.method, tt.path)
			if limited != tt.limited {
				t.Fatalf("ClassifyRoute(%s %s) limited = %v, want %v", tt.method, tt.path, limited, tt.limited)
			}
			if limited && got != tt.want {
				t.Errorf("ClassifyRoute(%s %s) = %v, want %v", tt.method, tt.path, got, tt.want)
			}
		})
	}
}

func TestClassString(t *testing.T) {
	tests := []struct {
		class Class
		want  string
	}{
		{ClassDefault, "default"},
		{ClassAdminRead, "admin-read"},
		{ClassAdminWrite, "admin-write"},
		{ClassMedia, "media"},
	}
	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("Class(%d).String() = %q, want %q", tt.class, got, tt.want)
		}
	}
}
