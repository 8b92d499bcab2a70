package site

import (
	"errors"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// EntryPage is the file a static host serves for a directory URL.
const EntryPage = "index.html"

var (
	phantomPrefixPattern = regexp.MustCompile(`(?:href|src|action)=["']\.?/([a-zA-Z0-9_-]+)/(static|assets|js|css|images|img|fonts|media)/`)
	rootAbsolutePattern  = regexp.MustCompile(`(href|src|action)=(["'])/([^/]|$)`)

	assetDirs = map[string]struct{}{
		"static": {}, "assets": {}, "js": {}, "css": {}, "images": {}, "img": {}, "fonts": {}, "media": {},
	}
)

// Normalize picks the servable root inside an extracted tree, makes sure it has an entry page
// and rewrites the entry page so it works below any URL prefix.
func Normalize(extracted string) (string, error) {
	root, err := FindRoot(extracted)
	if err != nil {
		return "", err
	}

	if err := EnsureEntryPage(root); err != nil {
		return "", err
	}

	if err := RewriteEntryPage(root); err != nil {
		return "", err
	}

	return root, nil
}

// FindRoot returns the directory holding the shallowest index.html. Directories on the same
// level are searched in lexical order and the first hit wins. When no entry page exists the
// single visible top-level folder is unwrapped, otherwise extracted itself is the root.
func FindRoot(extracted string) (string, error) {
	queue := []string{extracted}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", dir, err)
		}

		var children []string
		for _, entry := range entries {
			if entry.IsDir() {
				children = append(children, filepath.Join(dir, entry.Name()))
				continue
			}
			if entry.Name() == EntryPage && entry.Type().IsRegular() {
				return dir, nil
			}
		}
		queue = append(queue, children...)
	}

	entries, err := os.ReadDir(extracted)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", extracted, err)
	}

	var visible []fs.DirEntry
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || name == "__MACOSX" {
			continue
		}
		visible = append(visible, entry)
	}

	if len(visible) == 1 && visible[0].IsDir() {
		return filepath.Join(extracted, visible[0].Name()), nil
	}

	return extracted, nil
}

// EnsureEntryPage writes a listing page into root when it has no index.html of its own.
func EnsureEntryPage(root string) error {
	entryPath := filepath.Join(root, EntryPage)
	if _, err := os.Stat(entryPath); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	files, err := listFiles(root)
	if err != nil {
		return err
	}

	if err := os.WriteFile(entryPath, []byte(listingPage(files)), filePerm); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	return nil
}

// RewriteEntryPage applies RewritePaths to root/index.html, touching the file only when the
// markup changes.
func RewriteEntryPage(root string) error {
	entryPath := filepath.Join(root, EntryPage)
	content, err := os.ReadFile(entryPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	rewritten := RewritePaths(string(content), func(name string) bool {
		info, err := os.Stat(filepath.Join(root, name))
		return err == nil && info.IsDir()
	})
	if rewritten == string(content) {
		return nil
	}

	if err := os.WriteFile(entryPath, []byte(rewritten), filePerm); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	return nil
}

// RewritePaths makes root-absolute references in markup relative. References of the form
// /<name>/<asset-dir>/... whose <name> is not a real directory lose the <name> segment first;
// build tools emit those when configured for a different deployment root. Applying the
// rewrite to its own output returns the input unchanged.
func RewritePaths(markup string, dirExists func(name string) bool) string {
	rewritten := markup
	// Every pass removes at least one segment, so this terminates. Looping until no phantom is
	// left keeps the rewrite stable when a stripped reference exposes another phantom.
	for {
		names := phantomPrefixes(rewritten, dirExists)
		if len(names) == 0 {
			break
		}
		for _, name := range names {
			rewritten = strings.NewReplacer(
				`"/`+name+`/`, `"/`,
				`'/`+name+`/`, `'/`,
				`"./`+name+`/`, `"./`,
				`'./`+name+`/`, `'./`,
			).Replace(rewritten)
		}
	}

	// Matches consume the character after the slash, so an attribute glued to the previous
	// one is only seen on a later pass.
	for {
		next := rootAbsolutePattern.ReplaceAllString(rewritten, `$1=$2./$3`)
		if next == rewritten {
			return next
		}
		rewritten = next
	}
}

func phantomPrefixes(markup string, dirExists func(name string) bool) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, match := range phantomPrefixPattern.FindAllStringSubmatch(markup, -1) {
		name := match[1]
		if _, isAssetDir := assetDirs[name]; isAssetDir {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if !dirExists(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func listingPage(files []string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8">`)
	b.WriteString(`<title>Submission Files</title>`)
	b.WriteString(`<style>body{font-family:monospace;padding:20px}a{display:block;padding:4px 0}</style>`)
	b.WriteString(`</head><body><h2>Submitted Files</h2>`)
	for _, file := range files {
		escaped := html.EscapeString(file)
		b.WriteString(`<a href="`)
		b.WriteString(escaped)
		b.WriteString(`">`)
		b.WriteString(escaped)
		b.WriteString(`</a>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}
