package publisher

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
)

// attachmentSet owns every file handle opened for one publish operation.
// Handles are released together through Close, which is safe to call more
// than once; only the first call closes anything.
type attachmentSet struct {
	files   []*discordgo.File
	handles []*os.File
}

// openAttachments opens the cover (if set) followed by each attachment path.
// Any missing path aborts the whole set with AttachmentNotFoundError and the
// handles opened so far are closed before returning; partial sets are never
// handed to the caller.
func openAttachments(cover string, paths []string) (*attachmentSet, error) {
	set := &attachmentSet{}

	all := make([]string, 0, len(paths)+1)
	if cover != "" {
		all = append(all, cover)
	}
	all = append(all, paths...)

	for _, path := range all {
		if err := set.add(path); err != nil {
			set.Close()
			return nil, err
		}
	}
	return set, nil
}

func (s *attachmentSet) add(path string) error {
	f, err := os.Open(path)
	if err != nil {
		// Open reports the missing file directly; a separate existence
		// check would race with concurrent deletion.
		if os.IsNotExist(err) {
			return &AttachmentNotFoundError{Path: path}
		}
		return fmt.Errorf("failed to open attachment %s: %w", path, err)
	}
	s.handles = append(s.handles, f)

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	s.files = append(s.files, &discordgo.File{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Reader:      f,
	})
	return nil
}

// Close releases every handle in the set exactly once.
func (s *attachmentSet) Close() {
	for _, f := range s.handles {
		f.Close()
	}
	s.handles = nil
	s.files = nil
}
