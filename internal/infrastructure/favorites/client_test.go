package favorites

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/favorites" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]string{"KRW-BTC", "KRW-ETH"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/api")
	symbols, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "KRW-BTC" {
		t.Errorf("unexpected symbols: %v", symbols)
	}
}

func TestClient_AddAndRemove(t *testing.T) {
	var gotMethod, gotPath, gotCode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotCode = r.URL.Query().Get("marketCode")
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/api")

	if err := client.Add(context.Background(), "KRW-BTC"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/favorites/add" || gotCode != "KRW-BTC" {
		t.Errorf("unexpected add request: %s %s code=%s", gotMethod, gotPath, gotCode)
	}

	if err := client.Remove(context.Background(), "KRW-BTC"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/favorites/remove" {
		t.Errorf("unexpected remove request: %s %s", gotMethod, gotPath)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/api")

	if _, err := client.List(context.Background()); err == nil {
		t.Error("List should fail on 500")
	}
	if err := client.Add(context.Background(), "KRW-BTC"); err == nil {
		t.Error("Add should fail on 500")
	}
}
