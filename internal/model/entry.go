package model

// RawEntry is an unparsed markup fragment that the lister recognized as a
// repository content link. It is the outer HTML of the marked element.
type RawEntry string

// EntryKind tells files and directories apart.
type EntryKind int

const (
	// KindDirectory is a tree reference that gets expanded.
	KindDirectory EntryKind = iota
	// KindFile is a blob reference that gets an extraction job.
	KindFile
)

// String returns the lowercase name of the kind.
func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Entry is a classified link found on a directory page.
// Entries are values; they are handed from the walker to the dispatcher or
// to a child expansion and never shared.
type Entry struct {
	// Address is the absolute URL of the file or directory page.
	Address string `json:"address"`

	// Kind is the classification of the link.
	Kind EntryKind `json:"kind"`
}

// IsFile reports whether the entry is a blob reference.
func (e Entry) IsFile() bool {
	return e.Kind == KindFile
}

// IsDirectory reports whether the entry is a tree reference.
func (e Entry) IsDirectory() bool {
	return e.Kind == KindDirectory
}

// Partition splits entries into files and directories, keeping page order
// within each group.
func Partition(entries []Entry) (files, dirs []Entry) {
	for _, e := range entries {
		if e.IsFile() {
			files = append(files, e)
		} else {
			dirs = append(dirs, e)
		}
	}
	return files, dirs
}
