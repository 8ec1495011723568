package downloader

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

const defaultFileName = "document.pdf"

var unsafeFileNameRegexp = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// FileName derives a file name from the url: the last path segment plus the query, with characters that are unsafe in
// file names replaced by underscores and a .pdf extension appended when missing.
//
//	FileName("https://x.org/papers/qp1.pdf")          // qp1.pdf
//	FileName("https://x.org/download?file=syllabus")  // download_file=syllabus.pdf
func FileName(rawURL string) string {
	name := ""

	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." {
			name = base
		}

		if u.RawQuery != "" {
			name = strings.TrimPrefix(name+"_"+u.RawQuery, "_")
		}
	}

	name = strings.Trim(unsafeFileNameRegexp.ReplaceAllString(name, "_"), ". ")
	if name == "" {
		return defaultFileName
	}

	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}

	return name
}
