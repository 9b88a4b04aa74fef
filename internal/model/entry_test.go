package model

import "testing"

// TestEntryKindString tests the String method of EntryKind.
func TestEntryKindString(t *testing.T) {
	t.Parallel()

	if KindFile.String() != "file" {
		t.Errorf("expected file, got %q", KindFile.String())
	}
	if KindDirectory.String() != "directory" {
		t.Errorf("expected directory, got %q", KindDirectory.String())
	}
	if EntryKind(42).String() != "unknown" {
		t.Errorf("expected unknown, got %q", EntryKind(42).String())
	}
}

// TestPartition tests splitting entries by kind.
func TestPartition(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{Address: "https://h/o/r/blob/main/a.go", Kind: KindFile},
		{Address: "https://h/o/r/tree/main/dir1", Kind: KindDirectory},
		{Address: "https://h/o/r/blob/main/b.go", Kind: KindFile},
		{Address: "https://h/o/r/tree/main/dir2", Kind: KindDirectory},
	}

	files, dirs := Partition(entries)

	if len(files) != 2 || len(dirs) != 2 {
		t.Fatalf("expected 2 files and 2 dirs, got %d and %d", len(files), len(dirs))
	}
	if files[0].Address != entries[0].Address || files[1].Address != entries[2].Address {
		t.Errorf("file order not preserved: %v", files)
	}
	if dirs[0].Address != entries[1].Address || dirs[1].Address != entries[3].Address {
		t.Errorf("directory order not preserved: %v", dirs)
	}
}
