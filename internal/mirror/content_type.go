package mirror

import "strings"

const defaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	"txt":  "text/plain",
	"html": "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"json": "application/json",
	"xml":  "application/xml",
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"zip":  "application/zip",
	"tar":  "application/x-tar",
	"gz":   "application/gzip",
}

// ContentTypeFor maps the text after the last dot of name to a MIME type.
func ContentTypeFor(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return defaultContentType
	}
	if ct, ok := contentTypes[strings.ToLower(name[idx+1:])]; ok {
		return ct
	}
	return defaultContentType
}
