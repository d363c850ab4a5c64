package models

// PublishRequest is the JSON body accepted by the publish endpoint.
// File paths (cover and attachment) must already be reachable inside the
// container; the bridge does not resolve or download them.
type PublishRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	ComicID    string   `json:"comic_id,omitempty"`
	Cover      string   `json:"cover,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Attachment []string `json:"attachment,omitempty"`
}

// PublishResult is returned to the HTTP caller on success.
// Status is "success" when a new thread was created and "replied" when an
// existing thread for the same comic_id received a notice message instead.
type PublishResult struct {
	Status   string `json:"status"`
	ThreadID string `json:"thread_id"`
	URL      string `json:"url"`
}

// ThreadMapping is one row of the comic_id -> thread_id table.
type ThreadMapping struct {
	ComicID   string `db:"comic_id"`
	ThreadID  string `db:"thread_id"`
	Title     string `db:"title"`
	Timestamp int64  `db:"timestamp"`
}
