package qr

import (
	"archive/zip"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
)

// ArchiveItem is one attendee's code to render into a bulk export.
type ArchiveItem struct {
	Name    string // attendee name, used for the file name
	ID      uint64 // attendee id, disambiguates duplicate names
	Payload string // encrypted QR payload
}

// BuildArchive renders one PNG per item and writes them into a zip archive
// under a qr-codes/ folder.  Renders are independent and run on a small
// worker pool; the zip itself is written sequentially since zip.Writer is
// not safe for concurrent use.  An item whose render fails is skipped and
// reported in the returned slice; one bad row must not sink an export of
// hundreds of codes.
func BuildArchive(w io.Writer, items []ArchiveItem, opts RenderOptions) (skipped []string, err error) {
	type rendered struct {
		png []byte
		err error
	}
	results := make([]rendered, len(items))

	workers := runtime.NumCPU()
	if workers > len(items) {
		workers = len(items)
	}
	if workers < 1 {
		workers = 1
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				png, rerr := Render(items[i].Payload, opts)
				results[i] = rendered{png: png, err: rerr}
			}
		}()
	}
	for i := range items {
		idx <- i
	}
	close(idx)
	wg.Wait()

	zw := zip.NewWriter(w)
	for i, item := range items {
		if results[i].err != nil {
			skipped = append(skipped, fmt.Sprintf("%s (id %d): %v", item.Name, item.ID, results[i].err))
			continue
		}
		f, cerr := zw.Create(fmt.Sprintf("qr-codes/%s-%d.png", SanitizeFileName(item.Name), item.ID))
		if cerr != nil {
			return skipped, cerr
		}
		if _, werr := f.Write(results[i].png); werr != nil {
			return skipped, werr
		}
	}
	return skipped, zw.Close()
}

// SanitizeFileName lowercases the name and replaces every character outside
// [a-z0-9] with an underscore, matching the naming of codes exported since
// the first release.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
