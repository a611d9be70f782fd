// Package diag defines the compile diagnostics side channel: a tree
// mirroring the logical-line forest the removal engine walked, annotated
// with which lines were removed and why. It is pure read access — building
// it never changes a compile's result.
package diag

// DiagNode mirrors one Line from the compiler's internal forest.
type DiagNode struct {
	LineNumber int
	Content    string
	Removed    bool
	Reason     string
	Children   []*DiagNode
}

// CompileDiagnostics is the full diagnostic tree for one compile call, plus
// any non-fatal warnings noticed along the way (e.g. a %STR/%SQL
// interpolation site, which bypasses placeholder binding entirely).
type CompileDiagnostics struct {
	Root     []*DiagNode
	Warnings []string
}
