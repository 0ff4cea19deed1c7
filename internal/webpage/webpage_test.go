package webpage

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func gbk(t *testing.T, s string) string {
	t.Helper()
	out, err := simplifiedchinese.GBK.NewEncoder().String(s)
	require.NoError(t, err)
	return out
}

func TestDecodeKeepsUTF8BehindLongASCIIHead(t *testing.T) {
	body := "<html><head><script>" + strings.Repeat("a", 1100) + "</script><title>注销页</title>"

	page := Decode([]byte(body), "text/html")

	assert.Equal(t, body, page.Text)
	assert.True(t, page.Contains("注销页"))
}

func TestDecodeHonoursHeaderCharset(t *testing.T) {
	page := Decode([]byte(gbk(t, "<title>上网登录页</title>")), "text/html; charset=gbk")
	assert.Equal(t, "<title>上网登录页</title>", page.Text)
	assert.True(t, page.Contains("上网登录页"))
}

func TestDecodeUndeclaredGBK(t *testing.T) {
	page := Decode([]byte(gbk(t, "<title>上网登录页</title>")), "text/html")
	assert.True(t, page.Contains("上网登录页"))
}

func TestDecodeMetaCharset(t *testing.T) {
	body := `<meta http-equiv="Content-Type" content="text/html; charset=gb2312">` + gbk(t, "<title>注销页</title>")
	page := Decode([]byte(body), "")
	assert.True(t, page.Contains("注销页"))
}

func TestDecodeAcceptsTruncatedUTF8(t *testing.T) {
	full := []byte("<title>认证成功页</title>")
	cut := full[:len("<title>认证成功")+1]

	page := Decode(cut, "text/html")

	assert.Equal(t, string(cut), page.Text)
	assert.True(t, page.Contains("认证成功"))
}

func TestSearchable(t *testing.T) {
	same := Page{Raw: "a", Text: "a"}
	assert.Equal(t, "a", same.Searchable())
	assert.Equal(t, "x\ny", Page{Raw: "y", Text: "x"}.Searchable())
	assert.False(t, same.Contains(""))
}

func TestReadLimitsPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(strings.Repeat("x", 100) + "注销页"))
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	page, err := Read(resp, 100)
	require.NoError(t, err)
	assert.Len(t, page.Raw, 100)
	assert.False(t, page.Contains("注销页"))
}
