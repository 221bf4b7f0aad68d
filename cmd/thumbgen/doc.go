// Command thumbgen fills the thumbnail cache from the command line.
//
// It reads the same environment variables as the thumbcache server; the
// persistent flags override them:
//
//	thumbgen generate --web-root /var/www --ratios 1,2 -W 300 images/a.jpg images/b.png
//	find images -name '*.jpg' | thumbgen generate --from - -W 300 -H 200
//
// Sources are processed in parallel. The worker count comes from --workers,
// then THUMBNAIL_WORKERS, then the number of CPUs. Every source is attempted
// unless --fail-fast is given, and the exit status is non-zero when any
// source failed.
package main
