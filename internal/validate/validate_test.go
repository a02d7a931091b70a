package validate

import "testing"

func TestLooksLikeFalseSuccessCheckingBrowser(t *testing.T) {
	body := []byte(`<html><title>Checking your browser...</title>`)
	if !LooksLikeFalseSuccess(body, "") {
		t.Error("expected checking-browser page to be flagged")
	}
}

func TestLooksLikeFalseSuccessBenignPage(t *testing.T) {
	body := []byte(`<html><p>Welcome</p></html>`)
	if LooksLikeFalseSuccess(body, "") {
		t.Error("expected benign page to pass")
	}
}

func TestLooksLikeFalseSuccessDataDomeTailExact(t *testing.T) {
	body := []byte(`some unrelated prefix with no markers at all title="DataDome Device Check"></iframe></html>`)
	if !LooksLikeFalseSuccess(body, "") {
		t.Error("expected exact DataDome tail signature to be flagged even without other markers")
	}
}

func TestLooksLikeFalseSuccessTailWithTrailingWhitespace(t *testing.T) {
	body := []byte("x title=\"DataDome Device Check\"></iframe></html>\n\n  \t")
	if !LooksLikeFalseSuccess(body, "") {
		t.Error("trailing whitespace must not defeat the exact-tail match")
	}
}

func TestLooksLikeFalseSuccessGenericWithoutHTMLGate(t *testing.T) {
	body := []byte(`403 forbidden blocked`)
	if LooksLikeFalseSuccess(body, "") {
		t.Error("without <html present, verdict must be false")
	}
}

func TestLooksLikeFalseSuccessLargeBodySkipsWordMarkers(t *testing.T) {
	big := make([]byte, maxBodySizeForWordMarkers+1)
	for i := range big {
		big[i] = 'a'
	}
	body := append([]byte(`<html>403 forbidden blocked`), big...)
	if LooksLikeFalseSuccess(body, "") {
		t.Error("oversized body with only generic+word markers must not be flagged")
	}
}
