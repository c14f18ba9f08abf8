package domain

import "context"

// Downloader transfers the media of one queue item to local storage
type Downloader interface {
	// Download fetches the media for item. It must stop when ctx is cancelled.
	Download(ctx context.Context, item *DownloadItem) error
}

// CandidateSource lists karaoke entries of a remote repository
type CandidateSource interface {
	// SearchKaras returns one page of the catalog of repository
	SearchKaras(ctx context.Context, repository string, from, size int) (*CandidatePage, error)
}

// MediaStore answers questions about media already present locally
type MediaStore interface {
	// Stat returns the size of a local media file and whether it exists
	Stat(mediafile string) (int64, bool)
}
