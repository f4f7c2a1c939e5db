// Package workflow orchestrates conversions. The manager admits jobs
// through a weighted semaphore, runs the detect/convert/segment pipeline
// with cache sharing, routes video URLs through subtitles and the LLM
// rewriter, and hands finished documents to the assembler. Blocking
// persistence steps run on a small fixed worker pool so admission slots
// stay busy with conversion work.
package workflow
