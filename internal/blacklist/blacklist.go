// Package blacklist decides whether a torrent carries files with forbidden
// extensions.
package blacklist

import (
	"path"
	"strings"

	"github.com/vmunix/filtarr/internal/download"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultExtensions are executables, installers and archives that commonly
// wrap malware in fake releases.
var DefaultExtensions = []string{
	".exe", ".bat", ".cmd", ".com", ".scr", ".pif", ".msi", ".dll", ".vbs", ".js",
	".jar", ".app", ".deb", ".rpm", ".dmg", ".pkg", ".zip", ".rar", ".7z", ".tar", ".gz",
}

// Blacklist is an immutable, ordered set of lowercase extensions with their
// leading dot.
type Blacklist struct {
	exts []string
	set  map[string]struct{}
}

// New builds a blacklist. Entries are lower-cased, given a leading dot if
// missing, and de-duplicated keeping the first occurrence. Blank entries are
// dropped.
func New(exts []string) *Blacklist {
	b := &Blacklist{set: make(map[string]struct{}, len(exts))}
	for _, e := range exts {
		e = strings.TrimSpace(e)
		if e == "" || e == "." {
			continue
		}
		e = lower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if _, dup := b.set[e]; dup {
			continue
		}
		b.set[e] = struct{}{}
		b.exts = append(b.exts, e)
	}
	return b
}

// Default returns a blacklist of DefaultExtensions.
func Default() *Blacklist {
	return New(DefaultExtensions)
}

// Extensions returns the entries in configuration order.
func (b *Blacklist) Extensions() []string {
	out := make([]string, len(b.exts))
	copy(out, b.exts)
	return out
}

// Len returns the number of entries.
func (b *Blacklist) Len() int {
	return len(b.exts)
}

// Contains reports whether ext (with its dot) is blacklisted.
func (b *Blacklist) Contains(ext string) bool {
	if ext == "" {
		return false
	}
	_, ok := b.set[lower(ext)]
	return ok
}

// Match returns the first file whose extension is blacklisted.
func (b *Blacklist) Match(files []download.TorrentFile) (download.TorrentFile, bool) {
	for _, f := range files {
		if b.Contains(Extension(f.Name)) {
			return f, true
		}
	}
	return download.TorrentFile{}, false
}

// HasBlacklistedFiles reports whether any file's extension is in b.
func HasBlacklistedFiles(files []download.TorrentFile, b *Blacklist) bool {
	_, found := b.Match(files)
	return found
}

// Extension returns the lowercase extension of a file name, dot included.
// Names are torrent-relative paths; only the last element is considered.
// A name without a dot has no extension.
func Extension(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return ""
	}
	return lower(base[i:])
}

// Casers are not safe for concurrent use, so one is built per call.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
