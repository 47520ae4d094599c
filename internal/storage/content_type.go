package storage

import (
	"bytes"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// allowedUploadTypes are the images the dashboard shows: service images,
// banners and avatars.
var allowedUploadTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/webp":    true,
	"image/gif":     true,
	"image/svg+xml": true,
	"image/avif":    true,
}

// SniffLen is how much of an upload VerifyUpload needs to see.
const SniffLen = 512

// VerifyUpload decides the content type of an upload from its (sanitized)
// filename and its first SniffLen bytes. The extension must name an allowed
// image type and the content must be that type; the client's declared type
// is not trusted. The extension matters because it is what backends and
// CDNs serve the object as.
func VerifyUpload(filename string, head []byte) (string, error) {
	want := typeForKey(filename)
	if !allowedUploadTypes[want] {
		return "", ErrUnsupportedType
	}
	if !contentIs(want, head) {
		return "", ErrUnsupportedType
	}
	return want, nil
}

// contentIs reports whether head starts like a file of type want.
func contentIs(want string, head []byte) bool {
	switch want {
	case "image/svg+xml":
		// SVG is text; net/http sniffs it as XML, HTML or plain text.
		switch baseType(http.DetectContentType(head)) {
		case "text/xml", "text/html", "text/plain":
			return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
		}
		return false
	case "image/avif":
		// ISO BMFF: size, "ftyp", major brand.
		if len(head) < 12 || string(head[4:8]) != "ftyp" {
			return false
		}
		brand := string(head[8:12])
		return brand == "avif" || brand == "avis"
	default:
		return baseType(http.DetectContentType(head)) == want
	}
}

// typeForKey maps a key's extension to its canonical content type, or
// application/octet-stream when the extension is unknown.
func typeForKey(key string) string {
	t := baseType(mime.TypeByExtension(strings.ToLower(filepath.Ext(key))))
	switch t {
	case "":
		return "application/octet-stream"
	case "image/jpg":
		return "image/jpeg"
	}
	return t
}

// baseType strips parameters such as charset and normalizes case.
func baseType(contentType string) string {
	t := strings.Split(contentType, ";")[0]
	return strings.TrimSpace(strings.ToLower(t))
}
