package integrity

import "github.com/jmerrifield20/bchoc/internal/ledger"

// Kind classifies a certification.
type Kind string

const (
	Clean           Kind = "CLEAN"
	ContentMismatch Kind = "CONTENT_MISMATCH"
	ParentNotFound  Kind = "PARENT_NOT_FOUND"
	DuplicateParent Kind = "DUPLICATE_PARENT"
	IllegalSequence Kind = "ILLEGAL_SEQUENCE"
)

// Certification is the outcome of verifying one full ledger.
type Certification struct {
	Kind         Kind        `json:"kind" yaml:"kind"`
	Transactions int         `json:"transactions" yaml:"transactions"`
	BadBlock     ledger.Hash `json:"bad_block,omitzero" yaml:"bad_block,omitempty"`
	// Parent is the shared parent hash, set for DuplicateParent only.
	Parent ledger.Hash `json:"parent,omitzero" yaml:"parent,omitempty"`
}

// OK reports whether the ledger is clean.
func (c Certification) OK() bool { return c.Kind == Clean }

// Message explains a failed certification in one line.
func (c Certification) Message() string {
	switch c.Kind {
	case ContentMismatch:
		return "Block contents do not match block checksum."
	case ParentNotFound:
		return "Parent block not found."
	case DuplicateParent:
		return "Two blocks were found with the same parent."
	case IllegalSequence:
		return "Item checked out or checked in after removal from chain."
	}
	return ""
}

func clean(n int) Certification {
	return Certification{Kind: Clean, Transactions: n}
}

func failure(kind Kind, bad ledger.Hash, n int) Certification {
	return Certification{Kind: kind, Transactions: n, BadBlock: bad}
}
