package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestClient(url string) *OllamaClient {
	return NewOllamaClient(url, "test-model", 5*time.Second)
}

func TestGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		assert.Len(t, req.Images, 1)

		json.NewEncoder(w).Encode(generateResponse{Response: "the narrative"})
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Generate(context.Background(), "analyze this", [][]byte{[]byte("img")})
	assert.NoError(t, err)
	assert.Equal(t, "the narrative", got)
}

func TestGenerateServerErrorRetriesThenFails(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), "p", nil)

	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.Status)
	assert.Equal(t, UserMsgService, svcErr.UserMessage())
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls), "server errors get exactly one retry")
}

func TestGenerateClientErrorNoRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad model", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), "p", nil)

	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "4xx must not be retried")
}

func TestGenerateUnreachable(t *testing.T) {
	// Nothing is listening on this address.
	client := newTestClient("http://127.0.0.1:1")

	_, err := client.Generate(context.Background(), "p", nil)

	var trErr *TransportError
	assert.ErrorAs(t, err, &trErr)
	assert.Equal(t, UserMsgUnreachable, trErr.UserMessage())
}

func TestChatSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 3)

		resp := chatResponse{Done: true}
		resp.Message.Content = "how are you"
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	history := []Turn{{UserText: "hi", AIText: "hello"}}
	got, err := newTestClient(srv.URL).Chat(context.Background(), "how are you doing", "user", history)
	assert.NoError(t, err)
	assert.Equal(t, "how are you", got)
}

func TestChatIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Done: false})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), "q", "user", nil)

	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)
}

func TestChatMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), "q", "user", nil)

	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)
}

func TestBuildMessagesFlattening(t *testing.T) {
	history := []Turn{
		{UserText: "hi", AIText: "hello"},
		{UserText: "", AIText: "unprompted"},
		{UserText: "ping", AIText: ""},
	}

	got := BuildMessages("how are you", "user", history)

	want := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "assistant", Content: "unprompted"},
		{Role: "user", Content: "ping"},
		{Role: "user", Content: "how are you"},
	}
	assert.Equal(t, want, got)
}

func TestBuildMessagesNoHistory(t *testing.T) {
	got := BuildMessages("prompt", "system", nil)
	assert.Equal(t, []Message{{Role: "system", Content: "prompt"}}, got)
}
