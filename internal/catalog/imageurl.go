package catalog

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/jerseyleague/shop-backend/pkg/storage"
)

var (
	duplicateSlashes = regexp.MustCompile(`/{2,}`)
	s3PathStyleHost  = regexp.MustCompile(`^s3([.-][a-z0-9-]+)?\.amazonaws\.com$`)
)

// imageBase is the parsed public URL template, e.g.
// https://jls-media.s3.us-east-1.amazonaws.com or https://storage.googleapis.com/jls-media.
type imageBase struct {
	raw    string
	host   string
	prefix string
	bucket string
}

func parseImageBase(template string) (imageBase, bool) {
	template = strings.TrimRight(strings.TrimSpace(template), "/")
	u, err := url.Parse(template)
	if err != nil || u.Host == "" {
		return imageBase{}, false
	}
	base := imageBase{
		raw:    "https://" + u.Host + u.Path,
		host:   strings.ToLower(u.Host),
		prefix: strings.Trim(u.Path, "/"),
	}
	if idx := strings.Index(base.host, ".s3."); idx > 0 {
		base.bucket = base.host[:idx]
	} else if base.prefix != "" {
		base.bucket = base.prefix
	}
	return base, true
}

// RepairImageURL normalizes a stored product image reference against the public
// URL template. Bare keys are composed with the template, http is upgraded,
// path-style S3 URLs become virtual-hosted, and a repeated bucket host or
// doubled slashes inside the key are collapsed. URLs on foreign hosts are
// returned untouched.
func RepairImageURL(raw, template string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", raw != ""
	}
	base, ok := parseImageBase(template)
	if !ok {
		return raw, false
	}

	key, suffix, ok := base.keyOf(trimmed)
	if !ok {
		return raw, false
	}
	fixed := storage.PublicURL(base.raw, normalizeKey(key, base)) + suffix
	return fixed, fixed != raw
}

// keyOf extracts the object key from any of the shapes the catalog has held.
// suffix is the query and fragment, carried over verbatim.
func (b imageBase) keyOf(value string) (key, suffix string, ok bool) {
	if !strings.Contains(value, "://") && !strings.HasPrefix(value, "//") {
		if idx := strings.IndexAny(value, "?#"); idx >= 0 {
			return value[:idx], value[idx:], true
		}
		return value, "", true
	}

	u, err := url.Parse(value)
	if err != nil {
		return "", "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", "", false
	}
	host := strings.ToLower(u.Host)
	path := strings.TrimLeft(u.EscapedPath(), "/")

	if u.RawQuery != "" || u.ForceQuery {
		suffix = "?" + u.RawQuery
	}
	if u.Fragment != "" {
		suffix += "#" + u.EscapedFragment()
	}

	switch {
	case host == b.host:
		if b.prefix == "" {
			return path, suffix, true
		}
		if rest, found := strings.CutPrefix(path, b.prefix+"/"); found {
			return rest, suffix, true
		}
	case b.bucket != "" && s3PathStyleHost.MatchString(host):
		if rest, found := strings.CutPrefix(path, b.bucket+"/"); found {
			return rest, suffix, true
		}
	}
	return "", "", false
}

func normalizeKey(key string, b imageBase) string {
	key = strings.TrimLeft(key, "/")
	for {
		lower := strings.ToLower(key)
		switch {
		case strings.HasPrefix(lower, "https://"+b.host+"/"):
			key = key[len("https://"+b.host+"/"):]
		case strings.HasPrefix(lower, "http://"+b.host+"/"):
			key = key[len("http://"+b.host+"/"):]
		case strings.HasPrefix(lower, b.host+"/"):
			key = key[len(b.host+"/"):]
		default:
			return duplicateSlashes.ReplaceAllString(key, "/")
		}
		key = strings.TrimLeft(key, "/")
	}
}
