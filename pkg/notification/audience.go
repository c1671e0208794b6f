package notification

// AudienceKind discriminates the audience specification variants.
type AudienceKind string

const (
	AudienceAll     AudienceKind = "all"
	AudienceRole    AudienceKind = "role"
	AudienceIDs     AudienceKind = "ids"
	AudienceSegment AudienceKind = "segment"
)

// Role is a coarse user classification used by role-based audiences.
type Role string

const (
	RoleStudent   Role = "students"
	RoleOrganizer Role = "organizers"
	RoleAdmin     Role = "admins"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleOrganizer, RoleAdmin:
		return true
	default:
		return false
	}
}

// AudienceSpec is a logical recipient specification. Exactly one variant is
// populated, discriminated by Kind. Segment membership is resolved lazily at
// send time, never frozen at creation.
type AudienceSpec struct {
	Kind      AudienceKind `json:"kind"`
	Role      Role         `json:"role,omitempty"`
	IDs       []string     `json:"ids,omitempty"`
	SegmentID string       `json:"segment_id,omitempty"`
}

// Valid reports whether the spec names a resolvable audience.
func (a AudienceSpec) Valid() bool {
	switch a.Kind {
	case AudienceAll:
		return true
	case AudienceRole:
		return a.Role.Valid()
	case AudienceIDs:
		return len(a.IDs) > 0
	case AudienceSegment:
		return a.SegmentID != ""
	default:
		return false
	}
}
