package kml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

const (
	markupExt = ".kml"

	// maxEntryBytes caps the decompressed size of a single markup entry.
	maxEntryBytes = 64 << 20
)

var zipMagic = []byte("PK\x03\x04")

// Document is one markup document taken from an upload.
type Document struct {
	Archive string // container name, empty for a bare document
	Name    string
	Text    string
}

// Open accepts either a compressed archive or a bare markup document and
// returns the markup documents it holds.
func Open(name string, data []byte) ([]Document, error) {
	if bytes.HasPrefix(data, zipMagic) {
		return OpenArchive(name, data)
	}
	if strings.EqualFold(path.Ext(name), markupExt) {
		return []Document{OpenDocument("", name, data)}, nil
	}
	return nil, &domain.FormatError{Source: name, Reason: "neither a KMZ archive nor a KML document"}
}

// OpenArchive extracts every entry ending in .kml from a zip container, in
// the order the container stores them. An archive with no such entry fails
// with *domain.FormatError.
func OpenArchive(name string, data []byte) ([]Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &domain.FormatError{Source: name, Reason: "open zip", Err: err}
	}

	var docs []Document
	skipped := 0
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), markupExt) {
			continue
		}
		raw, err := readEntry(f)
		if err != nil {
			slog.Warn("skipping unreadable archive entry", "archive", name, "entry", f.Name, "error", err)
			skipped++
			continue
		}
		docs = append(docs, OpenDocument(name, f.Name, raw))
	}

	if len(docs) == 0 {
		reason := "no " + markupExt + " entries"
		if skipped > 0 {
			reason = fmt.Sprintf("%d %s entries, none readable", skipped, markupExt)
		}
		return nil, &domain.FormatError{Source: name, Reason: reason}
	}
	return docs, nil
}

// OpenDocument wraps raw markup bytes as a Document, decoding them as UTF-8.
func OpenDocument(archive, name string, data []byte) Document {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return Document{Archive: archive, Name: name, Text: strings.ToValidUTF8(string(data), "\uFFFD")}
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxEntryBytes {
		return nil, fmt.Errorf("entry larger than %d bytes", maxEntryBytes)
	}
	return data, nil
}
