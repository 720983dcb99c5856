package model

// ConflictPolicy selects what a bulk write does when a row with the same id
// already exists in the target table.
type ConflictPolicy int

const (
	// IgnoreDuplicate skips the incoming row and leaves the stored row untouched.
	IgnoreDuplicate ConflictPolicy = iota
	// MergeOnImport adds the incoming inventory to the stored inventory and
	// leaves every other stored field untouched.
	MergeOnImport
)

// PolicyFromImportFlag maps the boolean "import" switch of the write call to
// a ConflictPolicy.
func PolicyFromImportFlag(imported bool) ConflictPolicy {
	if imported {
		return MergeOnImport
	}
	return IgnoreDuplicate
}

// String returns the string representation of ConflictPolicy
func (p ConflictPolicy) String() string {
	switch p {
	case IgnoreDuplicate:
		return "ignore-duplicate"
	case MergeOnImport:
		return "merge-on-import"
	default:
		return "unknown"
	}
}

// IsValid reports whether p is a known policy.
func (p ConflictPolicy) IsValid() bool {
	return p == IgnoreDuplicate || p == MergeOnImport
}
