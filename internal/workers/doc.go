/*
Package workers sizes the worker pool of batch thumbnail generation.

Go sets GOMAXPROCS from the container CPU quota, while runtime.NumCPU still
reports the host's CPUs. Worker counts are therefore derived from GOMAXPROCS:

	// 2-CPU pod on a 64-core node
	runtime.NumCPU()      // 64
	runtime.GOMAXPROCS(0) // 2

Thumbnail generation decodes and resizes full images, so it is CPU-bound and
uses one worker per CPU. Batches that download remote originals spend part of
their time waiting on the network and use 1.5 workers per CPU:

	n := workers.Resolve(0, workers.CPUBound, 8) // at most 8
	n := workers.Resolve(0, workers.Mixed, 0)    // no cap

The THUMBNAIL_WORKERS environment variable overrides the computed count, and
a positive count passed to Resolve (the --workers flag of thumbgen) overrides
both:

	n := workers.Resolve(flagWorkers, workers.Mixed, 0)

Invalid or non-positive overrides are logged and ignored. The result is never
below 1 and never above a positive limit.

Each worker holds a decoded original plus its resized targets in memory, so
the memory budget (see package memory) is what ultimately bounds concurrency
on large images; the worker count only bounds CPU use.
*/
package workers
