package restclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-bridge/internal/models"
)

func TestListConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"conversations":[
			{"id":"c1","other_user":{"id":2,"name":"bob"},"unread_count":3},
			{"id":"c2","other_user":{"id":5,"name":"carol"},"is_archived":true}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	convs, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "bob", convs[0].OtherUser.Name)
	assert.Equal(t, 3, convs[0].UnreadCount)
	assert.True(t, convs[1].IsArchived)
}

func TestGetMessagesPagesAndEscapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations/c%201/messages", r.URL.EscapedPath())
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"groups":[{"date":"Today","messages":[{"id":9,"content":"hey"}]}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	groups, err := c.GetMessages(context.Background(), "c 1", 2)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Today", groups[0].Date)
	assert.Equal(t, int64(9), groups[0].Messages[0].ID)
}

func TestErrorBodyIsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"organization mismatch"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.ListConversations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization mismatch")
}

func TestUploadFilesMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		assert.Equal(t, "report.pdf", files[0].Filename)
		assert.Equal(t, "chart.png", files[1].Filename)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"attachments":[
			{"type":"document","url":"https://cdn/report.pdf","name":"report.pdf"},
			{"type":"image","url":"https://cdn/chart.png","name":"chart.png"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	atts, err := c.UploadFiles(context.Background(), []models.FileUpload{
		{Name: "report.pdf", Content: []byte("%PDF")},
		{Name: "chart.png", Content: []byte{0x89, 'P', 'N', 'G'}},
	})
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, "image", atts[1].Type)

	atts, err = c.UploadFiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, atts, "no files means no request")
}
