package model

// Kind identifies the filesystem operation an event describes.
type Kind string

const (
	KindRemoveDir Kind = "rmdir"
	KindMakeDir   Kind = "mkdir"
	KindChangeDir Kind = "chdir"
	KindUnlink    Kind = "unlink"
	KindHardlink  Kind = "hardlink"
	KindCreate    Kind = "create"
	KindWrite     Kind = "write"
	KindRead      Kind = "read"
)

// RawLine is a single trace record as read from a trace source.
type RawLine struct {
	Text   string
	Source string // trace file path, or "-" for stdin
	Number int    // 1-based line number within Source
}

// Event is a filesystem operation extracted from one trace line.
type Event struct {
	Kind    Kind   `json:"kind"`
	Path    string `json:"path"`
	Target  string `json:"target,omitempty"` // hardlink destination
	Flags   string `json:"flags,omitempty"`  // open flags when the pattern captures them
	Message string `json:"message"`          // rendered description
	Source  string `json:"source,omitempty"`
	Line    int    `json:"line,omitempty"`
	Raw     string `json:"raw"`
}
