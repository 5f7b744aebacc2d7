package util

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffImageMIME(t *testing.T) {
	cases := map[string]struct {
		in   []byte
		want string
	}{
		"jpeg": {[]byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		"png":  {[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		"webp": {[]byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		"heic": {[]byte("\x00\x00\x00\x18ftypheic"), "image/heic"},
		"heif": {[]byte("\x00\x00\x00\x18ftypmif1"), "image/heif"},
		"pdf":  {[]byte("%PDF-1.7"), ""},
		"tiny": {[]byte{0xFF}, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, SniffImageMIME(tc.in))
		})
	}
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xFE, 0xFB}

	b, hint, err := DecodeBase64MaybeDataURL(base64.StdEncoding.EncodeToString(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, b)
	assert.Empty(t, hint)

	b, hint, err = DecodeBase64MaybeDataURL(MakeDataURL("image/png", base64.StdEncoding.EncodeToString(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, b)
	assert.Equal(t, "image/png", hint)

	b, _, err = DecodeBase64MaybeDataURL(base64.URLEncoding.EncodeToString(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, b)

	_, _, err = DecodeBase64MaybeDataURL("not base64 at all!")
	assert.Error(t, err)
}

func TestPickMIME(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF}
	assert.Equal(t, "image/png", PickMIME(" IMAGE/PNG ", "image/webp", jpeg))
	assert.Equal(t, "image/webp", PickMIME("", "image/webp", jpeg))
	assert.Equal(t, "image/jpeg", PickMIME("", "", jpeg))
	assert.Equal(t, "application/pdf", PickMIME("", "", []byte("%PDF-1.7\n")))
	assert.Empty(t, PickMIME("", "", nil))
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		SHA256Hex(nil))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("  {\"a\":1}  "))
}

func TestClampRunes(t *testing.T) {
	assert.Equal(t, "héll", ClampRunes("héllo", 4))
	assert.Equal(t, "héllo", ClampRunes("héllo", 10))
	assert.Empty(t, ClampRunes("héllo", 0))
	assert.Equal(t, "ab...", Preview("abcdef", 2))
	assert.Equal(t, "ab", Preview("ab", 2))
}

func TestFlexNumbers(t *testing.T) {
	var v struct {
		A FlexInt   `json:"a"`
		B FlexInt   `json:"b"`
		C FlexInt   `json:"c"`
		D FlexFloat `json:"d"`
		E FlexFloat `json:"e"`
		F FlexFloat `json:"f"`
		G FlexFloat `json:"g"`
	}
	require.NoError(t, json.Unmarshal([]byte(
		`{"a":7,"b":"12","c":{"x":1},"d":0.8,"e":"85%","f":"high","g":"NaN"}`), &v))

	assert.Equal(t, FlexInt(7), v.A)
	assert.Equal(t, FlexInt(12), v.B)
	assert.Equal(t, FlexInt(0), v.C)
	assert.Equal(t, FlexFloat{Value: 0.8, Set: true}, v.D)
	assert.Equal(t, FlexFloat{Value: 85, Set: true}, v.E)
	assert.False(t, v.F.Set)
	assert.False(t, v.G.Set)
}

func TestStringList(t *testing.T) {
	cases := map[string]struct {
		in   string
		want StringList
	}{
		"array":  {`["a", " ", 3, "b"]`, StringList{"a", "b"}},
		"single": {`"only one"`, StringList{"only one"}},
		"object": {`{"a":"b"}`, nil},
		"blank":  {`"  "`, nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var got StringList
			require.NoError(t, json.Unmarshal([]byte(tc.in), &got))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("StringList mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
