package fetcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultSnippetAPI is the metadata endpoint used when no snippet API base
// is configured.
const DefaultSnippetAPI = "https://api.github.com/gists"

// FetchSnippet retrieves a snippet by id from the snippet API and extracts
// the named JSON file from its multi-file payload. An exact filename match is
// preferred, otherwise the first .json file wins. The metadata response is
// cached the same way as Get.
func (f *FetchCache) FetchSnippet(ctx context.Context, id, filename string) (*Result, error) {
	base := f.snippetAPI
	if base == "" {
		base = DefaultSnippetAPI
	}
	url := strings.TrimSuffix(base, "/") + "/" + id

	res, err := f.Get(ctx, url, map[string]string{"Accept": "application/json"}, true)
	if err != nil {
		return nil, fmt.Errorf("fetch snippet %s: %w", id, err)
	}

	content, err := extractSnippetFile(res.Data, filename)
	if err != nil {
		return nil, fmt.Errorf("snippet %s: %w", id, err)
	}

	return &Result{Data: content, Headers: res.Headers, Status: res.Status, FromCache: res.FromCache}, nil
}

// extractSnippetFile picks one file's content out of a multi-file snippet
// payload of the form {"files": {"name": {"content": "..."}}}
func extractSnippetFile(payload []byte, filename string) ([]byte, error) {
	files := gjson.GetBytes(payload, "files")
	if !files.Exists() || !files.IsObject() {
		return nil, fmt.Errorf("payload has no files")
	}

	if filename != "" {
		if exact := files.Get(escapeGJSONKey(filename) + ".content"); exact.Exists() {
			return []byte(exact.String()), nil
		}
	}

	var content string
	files.ForEach(func(name, file gjson.Result) bool {
		if strings.HasSuffix(name.String(), ".json") {
			content = file.Get("content").String()
			return false // stop at first .json file
		}
		return true
	})
	if content == "" {
		return nil, fmt.Errorf("no json file in payload")
	}
	return []byte(content), nil
}

// escapeGJSONKey escapes path separators so dotted filenames and setting
// keys address a single literal JSON key.
func escapeGJSONKey(key string) string {
	key = strings.ReplaceAll(key, `\`, `\\`)
	key = strings.ReplaceAll(key, ".", `\.`)
	return key
}
