// Package textutil holds small text helpers shared by assembly and the CLI.
package textutil
