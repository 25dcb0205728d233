// Package worktree implements the worktree engine: a content-addressed,
// on-disk tree of entries whose identity survives rename/move, whose
// physical layout may diverge from the virtual path shown to callers, and
// which supports a parallel scan plus structured create/update/remove.
package worktree

import "fmt"

// Class is the entry's content category.
type Class int

const (
	ClassRequest Class = iota
	ClassEndpoint
	ClassComponent
	ClassSchema
)

func (c Class) String() string {
	switch c {
	case ClassRequest:
		return "Request"
	case ClassEndpoint:
		return "Endpoint"
	case ClassComponent:
		return "Component"
	case ClassSchema:
		return "Schema"
	default:
		return "Unknown"
	}
}

func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Class) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Request":
		*c = ClassRequest
	case "Endpoint":
		*c = ClassEndpoint
	case "Component":
		*c = ClassComponent
	case "Schema":
		*c = ClassSchema
	default:
		return fmt.Errorf("worktree: unknown class %q", b)
	}
	return nil
}

// protocolAllowed reports whether a class permits a protocol-bearing Item.
// Component and Schema entries describe shapes, not requests, so a
// protocol change on them is rejected.
func (c Class) protocolAllowed() bool {
	return c == ClassRequest || c == ClassEndpoint
}

// Kind distinguishes a directory entry from a leaf item.
type Kind int

const (
	KindDir Kind = iota
	KindItem
)

func (k Kind) String() string {
	if k == KindDir {
		return "Dir"
	}
	return "Item"
}

// Protocol is an Item entry's HTTP method, optional for Component/Schema.
type Protocol int

const (
	ProtocolNone Protocol = iota
	ProtocolGet
	ProtocolPost
	ProtocolPut
	ProtocolDelete
	ProtocolPatch
	ProtocolHead
	ProtocolOptions
)

func (p Protocol) String() string {
	switch p {
	case ProtocolGet:
		return "Get"
	case ProtocolPost:
		return "Post"
	case ProtocolPut:
		return "Put"
	case ProtocolDelete:
		return "Delete"
	case ProtocolPatch:
		return "Patch"
	case ProtocolHead:
		return "Head"
	case ProtocolOptions:
		return "Options"
	default:
		return "None"
	}
}

func (p Protocol) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Protocol) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Get":
		*p = ProtocolGet
	case "Post":
		*p = ProtocolPost
	case "Put":
		*p = ProtocolPut
	case "Delete":
		*p = ProtocolDelete
	case "Patch":
		*p = ProtocolPatch
	case "Head":
		*p = ProtocolHead
	case "Options":
		*p = ProtocolOptions
	case "None", "":
		*p = ProtocolNone
	default:
		return fmt.Errorf("worktree: unknown protocol %q", b)
	}
	return nil
}

// fileName is the on-disk config file name for an Item of this protocol,
// e.g. "get.sapic". Changing protocol renames this file (see update.go).
func (p Protocol) fileName() string {
	switch p {
	case ProtocolGet:
		return "get.sapic"
	case ProtocolPost:
		return "post.sapic"
	case ProtocolPut:
		return "put.sapic"
	case ProtocolDelete:
		return "delete.sapic"
	case ProtocolPatch:
		return "patch.sapic"
	case ProtocolHead:
		return "head.sapic"
	case ProtocolOptions:
		return "options.sapic"
	default:
		return ""
	}
}

func protocolFromFileName(name string) (Protocol, bool) {
	switch name {
	case itemConfigFileName:
		return ProtocolNone, true
	case "get.sapic":
		return ProtocolGet, true
	case "post.sapic":
		return ProtocolPost, true
	case "put.sapic":
		return ProtocolPut, true
	case "delete.sapic":
		return ProtocolDelete, true
	case "patch.sapic":
		return ProtocolPatch, true
	case "head.sapic":
		return ProtocolHead, true
	case "options.sapic":
		return ProtocolOptions, true
	default:
		return ProtocolNone, false
	}
}

const dirConfigFileName = "folder.sapic"

// BodyKind tags an Item's body payload.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyRaw
	BodyFormData
	BodyURLEncoded
	BodyBinary
)

func (b BodyKind) String() string {
	switch b {
	case BodyRaw:
		return "raw"
	case BodyFormData:
		return "form-data"
	case BodyURLEncoded:
		return "url-encoded"
	case BodyBinary:
		return "binary"
	default:
		return "none"
	}
}

func (b BodyKind) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *BodyKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "raw":
		*b = BodyRaw
	case "form-data":
		*b = BodyFormData
	case "url-encoded":
		*b = BodyURLEncoded
	case "binary":
		*b = BodyBinary
	case "none", "":
		*b = BodyNone
	default:
		return fmt.Errorf("worktree: unknown body kind %q", text)
	}
	return nil
}

// Param is a header/path-param/query-param row.
type Param struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Order    int    `json:"order"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Body is the Item's request body, tagged by content kind.
type Body struct {
	Kind       BodyKind `json:"kind"`
	Raw        string   `json:"raw,omitempty"`
	FormData   []Param  `json:"formData,omitempty"`
	URLEncoded []Param  `json:"urlEncoded,omitempty"`
	Binary     string   `json:"binary,omitempty"`
}

// Metadata is the entry's descriptive header, common to Dir and Item.
type Metadata struct {
	Name        string `json:"name"`
	Class       Class  `json:"class"`
	Description string `json:"description,omitempty"`
}

// URLInfo holds an Item's protocol and raw templated URL.
type URLInfo struct {
	Protocol Protocol `json:"protocol"`
	Raw      string   `json:"raw,omitempty"`
}

// Document is the on-disk shape of an entry's configuration file,
// serialized as JSON rather than HCL.
type Document struct {
	ID          string   `json:"id"`
	Metadata    Metadata `json:"metadata"`
	URL         *URLInfo `json:"url,omitempty"`
	Headers     []Param  `json:"headers,omitempty"`
	PathParams  []Param  `json:"path_params,omitempty"`
	QueryParams []Param  `json:"query_params,omitempty"`
	Body        *Body    `json:"body,omitempty"`
}

// State is the entry's lifecycle stage.
type State int

const (
	StateAbsent State = iota
	StateCreated
	StateDirty
	StateClean
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "Absent"
	case StateCreated:
		return "Created"
	case StateDirty:
		return "Dirty"
	case StateClean:
		return "Clean"
	case StateRemoved:
		return "Removed"
	default:
		return "Unknown"
	}
}

// Entry is one node of the worktree index: a Dir or an Item, identified by
// a stable id that survives rename and move.
type Entry struct {
	ID           string
	ParentID     string // "" for entries directly under the worktree root
	VirtualPath  string // "/"-joined, unsanitized segments; "" at the root
	PhysicalPath string // absolute OS path; each segment sanitized
	Kind         Kind
	Class        Class
	Protocol     Protocol // ProtocolNone for Dir and protocol-less Items
	Order        int
	Expanded     bool
	State        State
	Doc          Document
}

// Name returns the entry's display name (its virtual path's last segment).
func (e *Entry) Name() string {
	return virtualBase(e.VirtualPath)
}
