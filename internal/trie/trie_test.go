package trie

import "testing"

func TestTrieInsertSearch(t *testing.T) {
	tr := New[int]()
	tr.Insert("hello", 1)
	tr.Insert("help", 2)

	if v, ok := tr.Search("hello"); !ok || v != 1 {
		t.Errorf("Search(hello) = %v, %v", v, ok)
	}
	if _, ok := tr.Search("hel"); ok {
		t.Error("Search(hel) should not match a partial key")
	}
}

func TestTrieEmptyKeyIgnored(t *testing.T) {
	tr := New[int]()
	tr.Insert("", 99)
	if _, ok := tr.Search(""); ok {
		t.Error("empty key insert should be a no-op")
	}
}

func TestTrieContainsPrefix(t *testing.T) {
	tr := New[struct{}]()
	tr.Insert("/private/", struct{}{})

	if !tr.ContainsPrefix("/private/x/y") {
		t.Error("expected prefix match")
	}
	if tr.ContainsPrefix("/public/") {
		t.Error("expected no prefix match")
	}
}
