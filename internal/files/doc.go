// Package files provides file discovery, concatenation and small file
// management helpers for ERP exports.
//
// Discovery lists exports (.csv, .xlsx) in a directory. Merger concatenates
// exports into one stream, optionally dropping header and footer lines.
// Manager moves and copies files within the data directory tree.
//
// Example usage:
//
//	discovery := files.NewDiscovery(paths.DataDir)
//	inputs, err := discovery.FindCSVFiles("downloads")
//
//	merger := files.NewMerger(files.MergeOptions{SkipHead: 1, HeadOnce: true, SkipTail: 1})
//	stats, err := merger.MergeFiles(ctx, out, files.Paths(inputs)...)
package files
