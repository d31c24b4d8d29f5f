package communication

import (
	"io"
	"mime/quotedprintable"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackRoutesByLevel(t *testing.T) {
	var posted []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		posted = append(posted, r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1700000000.000100"}`))
	}))
	defer srv.Close()

	s := NewSlack("xoxb-test", SlackOption{
		InfoChannelID:  "C-INFO",
		ErrorChannelID: "C-ERR",
		Prefix:         "kathmandu-1",
		APIURL:         srv.URL + "/",
	})

	require.NoError(t, s.Info("sweep ok"))
	require.NoError(t, s.Error("sweep failed"))

	require.Len(t, posted, 2)
	assert.Equal(t, "C-INFO", posted[0].Get("channel"))
	assert.Equal(t, "[kathmandu-1] sweep ok", posted[0].Get("text"))
	assert.Equal(t, "C-ERR", posted[1].Get("channel"))
}

func TestSlackSkipsUnsetChannel(t *testing.T) {
	s := NewSlack("xoxb-test", SlackOption{ErrorChannelID: "C-ERR", APIURL: "http://127.0.0.1:1/"})
	assert.NoError(t, s.Info("nobody listens"))
}

func TestBuildEmail(t *testing.T) {
	raw, err := BuildEmail("sync@example.com", []string{"ops@example.com", "it@example.com"}, "punchsync: sweep failures",
		"sweep 1: 0 succeeded, 1 failed\n- 10.0.0.2: connectivity: dial tcp 10.0.0.2:4370: i/o timeout")
	require.NoError(t, err)

	head, body, found := strings.Cut(string(raw), "\r\n\r\n")
	require.True(t, found)
	assert.Contains(t, head, "To: ops@example.com, it@example.com")
	assert.Contains(t, head, "Subject: punchsync: sweep failures")

	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(body)))
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "10.0.0.2: connectivity")

	_, err = BuildEmail("", nil, "s", "t")
	assert.Error(t, err)
}
