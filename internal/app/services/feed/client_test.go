package feed

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchResultsSignsRequests(t *testing.T) {
	var gotKey, gotTimestamp, gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotTimestamp = r.Header.Get("X-Timestamp")
		gotSignature = r.Header.Get("X-Signature")
		w.Write([]byte(`{"results":[{"market_name":"kalyan","result":"356-4","updated_date":"29-08-2026"}]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.Client(), server.URL, "key-1", "secret-1", 0, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	results, err := client.FetchResults(context.Background())
	if err != nil {
		t.Fatalf("FetchResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].MarketName != "kalyan" || results[0].Result != "356-4" {
		t.Errorf("result = %+v", results[0])
	}

	if gotKey != "key-1" {
		t.Errorf("X-Api-Key = %q", gotKey)
	}
	if gotTimestamp == "" {
		t.Fatal("X-Timestamp not set")
	}
	mac := hmac.New(sha256.New, []byte("secret-1"))
	mac.Write([]byte("key-1" + http.MethodGet + gotTimestamp))
	if want := hex.EncodeToString(mac.Sum(nil)); gotSignature != want {
		t.Errorf("X-Signature = %q, want %q", gotSignature, want)
	}
}

func TestFetchResultsRootArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"market_name":"milan","result":"356-41-128","updated_date":"29-08-2026"}]`))
	}))
	defer server.Close()

	client, err := NewClient(server.Client(), server.URL, "k", "s", 0, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	results, err := client.FetchResults(context.Background())
	if err != nil {
		t.Fatalf("FetchResults: %v", err)
	}
	if len(results) != 1 || results[0].MarketName != "milan" {
		t.Errorf("results = %+v", results)
	}
}

func TestFetchResultsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(server.Client(), server.URL, "k", "s", 0, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.FetchResults(context.Background()); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(nil, "", "k", "s", 0, nil); err == nil {
		t.Fatal("expected error for empty URL")
	}
}
