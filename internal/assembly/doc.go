// Package assembly persists converted documents. The output container is
// deliberately behind an interface; the bundled writer emits one styled,
// self-contained HTML file with the table of contents ahead of the anchored
// chapters.
package assembly
