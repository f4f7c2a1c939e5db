// Command clipbook converts clipped text, markup, and video links into
// styled, chaptered documents.
package main
