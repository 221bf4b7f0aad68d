/*
Package filesystem provides the file primitives of the thumbnail pipeline and
resilient wrappers with automatic retry logic for NFS stale file handle errors.

# Local file system

Local implements FileSystem for a web root served at a base URL:

	fs, err := filesystem.NewLocal("/var/www", "https://example.com")
	if err != nil {
	    log.Fatal(err)
	}
	url, _ := fs.PathToURL("/var/www/images/thumbnails/a-fit-100x0.jpg")

Write stores data in a temporary file in the destination directory and renames
it into place, so readers never observe a partially written thumbnail.
Concurrent writers of the same path overwrite each other with complete files.
Failures wrap errdefs.ErrFileSystem; URL mapping failures wrap
errdefs.ErrPathResolution.

# Retry Behavior

StatWithRetry and OpenWithRetry retry only ESTALE (errno 116) failures, with
exponential backoff:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

All other errors fail immediately without retry attempts.

# Metrics

Operations are reported to an Observer. The metrics package provides the
Prometheus implementation; install it with SetObserver at startup.
*/
package filesystem
