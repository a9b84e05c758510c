package mailapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"threadview/models"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		ImageProxyURL: "https://proxy.example/fetch",
	}, nil)
}

func testIntent() models.SendIntent {
	return models.SendIntent{
		To:      "you@example.com",
		Subject: "hi",
		Body:    "body",
		Kind:    models.KindPlain,
	}
}

func TestSubmit_Success(t *testing.T) {
	var received map[string]interface{}
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Error("api key header missing")
		}
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"result": map[string]bool{"success": true},
		})
	})

	outcome, err := client.Submit(context.Background(), "me@example.com", testIntent(), "pow-tok", "v-tok")
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Success || outcome.Status != "success" || outcome.StatusCode != 200 {
		t.Errorf("outcome wrong: %+v", outcome)
	}
	if received["from"] != "me@example.com" || received["pow_token"] != "pow-tok" {
		t.Errorf("request body wrong: %v", received)
	}
	if received["verification_token"] != "v-tok" {
		t.Error("verification token missing from submission")
	}
	if _, present := received["html_body"]; present && received["html_body"] != nil {
		t.Errorf("plain send should carry a null html body: %v", received["html_body"])
	}
}

func TestSubmit_DifficultyRejection(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":                    "error",
			"retryWithHigherDifficulty": true,
		})
	})

	outcome, err := client.Submit(context.Background(), "me@example.com", testIntent(), "p", "v")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.StatusCode != 429 || !outcome.RetryWithHigherDifficulty {
		t.Errorf("outcome wrong: %+v", outcome)
	}
	if outcome.Success {
		t.Error("rejection reported as success")
	}
}

func TestSubmit_HTMLBodyIncluded(t *testing.T) {
	var received map[string]interface{}
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"result": map[string]bool{"success": true},
		})
	})

	intent := testIntent()
	intent.Kind = models.KindHTML
	intent.HTMLBody = "<p>hi</p>"
	if _, err := client.Submit(context.Background(), "me@example.com", intent, "p", "v"); err != nil {
		t.Fatal(err)
	}
	if received["html_body"] != "<p>hi</p>" {
		t.Errorf("html body lost: %v", received["html_body"])
	}
}

func TestFetchThread(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/threads/t1/messages" {
			t.Errorf("path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []map[string]interface{}{
				{"id": "m1", "thread_id": "t1", "body": "a"},
				{"id": "m2", "thread_id": "t1", "body": "b"},
			},
		})
	})

	messages, err := client.FetchThread(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 || messages[0].ID != "m1" {
		t.Errorf("messages wrong: %+v", messages)
	}
}

func TestFetchThread_ErrorStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := client.FetchThread(context.Background(), "t1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMarkRead(t *testing.T) {
	var path string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	if err := client.MarkRead(context.Background(), "m7"); err != nil {
		t.Fatal(err)
	}
	if path != "/v1/messages/m7/read" {
		t.Errorf("path %s", path)
	}
}

func TestLookupReputation_NullScore(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"iq": null}`))
	})
	score, err := client.LookupReputation(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if score != nil {
		t.Errorf("got %v, want nil", *score)
	}
}

func TestLookupReputation_Score(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/iq/alice" {
			t.Errorf("path %s", r.URL.Path)
		}
		w.Write([]byte(`{"iq": 120}`))
	})
	score, err := client.LookupReputation(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if score == nil || *score != 120 {
		t.Errorf("got %v", score)
	}
}

func TestUploadAttachment(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatal(err)
		}
		defer file.Close()
		if header.Filename != "a.txt" {
			t.Errorf("filename %s", header.Filename)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.AttachmentDescriptor{
			ID: "srv-1", Filename: "a.txt", Size: 3,
		})
	})

	desc, err := client.UploadAttachment(context.Background(), models.StagedAttachment{
		AttachmentDescriptor: models.AttachmentDescriptor{ID: "local", Filename: "a.txt", Size: 3},
		Content:              []byte("abc"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if desc.ID != "srv-1" {
		t.Errorf("descriptor %+v", desc)
	}
}

func TestProxyImageURL(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://x", ImageProxyURL: "https://proxy.example/fetch"}, nil)
	got := client.ProxyImageURL("https://cdn.example.com/a.png?x=1")
	if !strings.HasPrefix(got, "https://proxy.example/fetch?url=") {
		t.Errorf("got %q", got)
	}
	if strings.Contains(strings.TrimPrefix(got, "https://proxy.example/fetch?url="), "?") {
		t.Errorf("original query not escaped: %q", got)
	}

	passthrough := NewClient(Config{BaseURL: "http://x"}, nil)
	if got := passthrough.ProxyImageURL("https://a/b.png"); got != "https://a/b.png" {
		t.Errorf("no proxy configured, got %q", got)
	}
}
